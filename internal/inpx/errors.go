package inpx

import "errors"

// Sentinel errors for INPX archive operations. Use errors.Is in callers.
var (
	// ErrCorruptArchive means the container could not be parsed as a zip archive.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrEntryNotFound means the named entry does not exist in the archive.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrVersionMarkerMissing means version.info is absent, short, or not a date stamp.
	ErrVersionMarkerMissing = errors.New("version marker missing or malformed")
	// ErrNamingConflict means the derived variant filename is not distinct from the source.
	ErrNamingConflict = errors.New("derived archive name conflicts with source")
	// ErrInvalidKeepPattern means one or more keep patterns failed to compile.
	ErrInvalidKeepPattern = errors.New("invalid keep pattern")
)
