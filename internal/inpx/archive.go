package inpx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// Marker entry names fixed by the INPX format.
const (
	// VersionEntry carries the 8-digit YYYYMMDD stamp of the catalog snapshot.
	VersionEntry = "version.info"
	// HeaderEntry is the human-readable collection header, exactly one per archive.
	HeaderEntry = "collection.info"
)

// Archive is a handle to an INPX container on disk. Mutating operations
// rebuild the container into a temporary file next to it and atomically swap
// it in, so a failed mutation leaves the original container untouched.
// The pipeline only ever mutates copies it made itself, never the source.
type Archive struct {
	path string
}

// Open verifies that path is a readable zip container and returns a handle.
func Open(path string) (*Archive, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", path, err)
		}
		return nil, fmt.Errorf("archive %s: %w: %w", path, ErrCorruptArchive, err)
	}
	_ = r.Close()

	return &Archive{path: path}, nil
}

// Path returns the container's location on disk.
func (a *Archive) Path() string {
	return a.path
}

// Entries returns all entry names in container order.
func (a *Archive) Entries() (names []string, err error) {
	r, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w: %w", a.path, ErrCorruptArchive, err)
	}
	defer func() {
		err = errors.Join(err, r.Close())
	}()

	names = make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}

	return names, nil
}

// Read returns the content of the named entry.
func (a *Archive) Read(name string) (content []byte, err error) {
	r, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w: %w", a.path, ErrCorruptArchive, err)
	}
	defer func() {
		err = errors.Join(err, r.Close())
	}()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			return nil, fmt.Errorf("open entry %s: %w", name, openErr)
		}
		defer func() {
			err = errors.Join(err, rc.Close())
		}()

		content, err = io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", name, err)
		}
		return content, nil
	}

	return nil, fmt.Errorf("entry %s: %w", name, ErrEntryNotFound)
}

// ExtractAll writes every entry's content under fsys, preserving relative
// names. The first per-entry failure aborts the whole extraction.
func (a *Archive) ExtractAll(fsys afero.Fs) (err error) {
	r, err := zip.OpenReader(a.path)
	if err != nil {
		return fmt.Errorf("archive %s: %w: %w", a.path, ErrCorruptArchive, err)
	}
	defer func() {
		err = errors.Join(err, r.Close())
	}()

	for _, f := range r.File {
		if err := extractEntry(fsys, f); err != nil {
			return fmt.Errorf("extract entry %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractEntry(fsys afero.Fs, f *zip.File) (err error) {
	name := path.Clean(f.Name)
	if name == "." || path.IsAbs(name) || hasDotDotSegment(name) {
		return fmt.Errorf("entry path %q escapes destination", f.Name)
	}

	if f.FileInfo().IsDir() {
		return fsys.MkdirAll(filepath.FromSlash(name), 0o755)
	}

	if dir := path.Dir(name); dir != "." {
		if err := fsys.MkdirAll(filepath.FromSlash(dir), 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()

	out, err := fsys.Create(filepath.FromSlash(name))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err = io.Copy(out, rc); err != nil {
		return err
	}

	return nil
}

// hasDotDotSegment reports whether a slash-separated path climbs out of its root.
func hasDotDotSegment(name string) bool {
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// Prune removes, in place, every entry whose name matches none of the keep
// patterns. The swap is atomic: on failure the container is left unpruned.
func (a *Archive) Prune(keep *KeepList) error {
	return a.rebuild(func(f *zip.File) bool { return keep.Keep(f.Name) }, "", nil)
}

// Upsert replaces the named entry's content, appending the entry when it is
// absent. Used for the single collection.info header entry.
func (a *Archive) Upsert(name string, content []byte) error {
	return a.rebuild(func(f *zip.File) bool { return f.Name != name }, name, content)
}

// rebuild streams the container into a temporary sibling file, carrying over
// the entries accepted by carry as raw copies (compression parameters
// preserved), optionally appending one deflated entry, then swaps the result
// over the original.
func (a *Archive) rebuild(carry func(*zip.File) bool, addName string, addContent []byte) (err error) {
	src, err := zip.OpenReader(a.path)
	if err != nil {
		return fmt.Errorf("archive %s: %w: %w", a.path, ErrCorruptArchive, err)
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	tmp, err := os.CreateTemp(filepath.Dir(a.path), filepath.Base(a.path)+".rebuild-*")
	if err != nil {
		return fmt.Errorf("create temp container: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range src.File {
		if !carry(f) {
			continue
		}

		if err := copyRawEntry(zw, f); err != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return fmt.Errorf("carry entry %s: %w", f.Name, err)
		}
	}

	if addName != "" {
		w, createErr := zw.Create(addName)
		if createErr != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return fmt.Errorf("create entry %s: %w", addName, createErr)
		}
		if _, writeErr := w.Write(addContent); writeErr != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return fmt.Errorf("write entry %s: %w", addName, writeErr)
		}
	}

	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finalize container: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp container: %w", err)
	}

	if err := os.Rename(tmpPath, a.path); err != nil {
		return fmt.Errorf("swap container: %w", err)
	}

	return nil
}

// copyRawEntry transfers one entry between containers without recompressing.
func copyRawEntry(zw *zip.Writer, f *zip.File) error {
	rc, err := f.OpenRaw()
	if err != nil {
		return err
	}

	header := f.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, rc)
	return err
}
