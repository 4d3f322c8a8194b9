package inpx

import (
	"errors"
	"fmt"
	"time"
)

const (
	versionStampLayout = "20060102"
	versionLayout      = "2006-01-02"
)

// ParseVersionStamp parses the leading 8-digit YYYYMMDD stamp of a
// version.info payload and renders it as YYYY-MM-DD. Trailing bytes after the
// stamp are ignored.
func ParseVersionStamp(content []byte) (string, error) {
	if len(content) < len(versionStampLayout) {
		return "", fmt.Errorf("version stamp %q too short: %w", content, ErrVersionMarkerMissing)
	}

	stamp, err := time.Parse(versionStampLayout, string(content[:len(versionStampLayout)]))
	if err != nil {
		return "", fmt.Errorf("version stamp %q: %w: %w", content[:len(versionStampLayout)], ErrVersionMarkerMissing, err)
	}

	return stamp.Format(versionLayout), nil
}

// Header is the human-readable collection.info block of a variant archive.
type Header struct {
	Tag     string
	Count   int64
	Version string
}

// Render produces the wire-exact header text: four LF-terminated lines plus
// the required trailing blank line.
func (h Header) Render() string {
	return fmt.Sprintf("Flibusta %s local %s\n0\nFlibusta. A local %s collection. Total: %d %s books\nhttp://flibusta.is/\n\n",
		h.Tag, h.Version, h.Tag, h.Count, h.Tag)
}

// RewriteHeader recomputes and replaces the collection.info entry of a
// variant archive from its own version.info stamp and the supplied book
// count. All other entries are untouched; the operation is idempotent.
func RewriteHeader(a *Archive, tag string, count int64) error {
	raw, err := a.Read(VersionEntry)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return fmt.Errorf("%s: %w", VersionEntry, ErrVersionMarkerMissing)
		}
		return err
	}

	version, err := ParseVersionStamp(raw)
	if err != nil {
		return err
	}

	header := Header{Tag: tag, Count: count, Version: version}
	if err := a.Upsert(HeaderEntry, []byte(header.Render())); err != nil {
		return fmt.Errorf("write %s: %w", HeaderEntry, err)
	}

	return nil
}
