package inpx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// allToken is the placeholder segment in a combined source archive filename,
// e.g. flibusta_all_local.inpx -> flibusta_fb2_local.inpx.
const allToken = "_all_"

// markerPattern keeps the fixed-name metadata entries in every variant.
const markerPattern = "*.info"

// Variant is one logical partition of a source archive, identified by a tag
// and the glob matching its record files.
type Variant struct {
	Tag        string
	RecordGlob string
}

// DefaultRecordGlob returns the record-file glob conventionally used for tag.
func DefaultRecordGlob(tag string) string {
	return fmt.Sprintf("*%s-*.inp", tag)
}

// KeepPatterns returns the globs an entry must match to survive in this
// variant: the marker pattern plus the variant's record glob.
func (v Variant) KeepPatterns() []string {
	return []string{markerPattern, v.RecordGlob}
}

// DeriveArchiveName maps a source archive filename to the variant's filename.
// The "_all_" placeholder is substituted when present; otherwise the tag is
// inserted before the extension. A derived name equal to the source fails
// with ErrNamingConflict.
func DeriveArchiveName(sourceName, tag string) (string, error) {
	var derived string
	if strings.Contains(sourceName, allToken) {
		derived = strings.Replace(sourceName, allToken, "_"+tag+"_", 1)
	} else {
		ext := filepath.Ext(sourceName)
		derived = strings.TrimSuffix(sourceName, ext) + "_" + tag + ext
	}

	if derived == sourceName {
		return "", fmt.Errorf("derive %s name from %s: %w", tag, sourceName, ErrNamingConflict)
	}

	return derived, nil
}

// BuildVariant duplicates the source container verbatim into outDir under the
// variant's derived name, then prunes every entry outside the variant's keep
// patterns. Entry ordering and compression parameters of retained entries are
// unchanged. The source archive is never mutated.
func BuildVariant(source *Archive, v Variant, outDir string) (*Archive, error) {
	name, err := DeriveArchiveName(filepath.Base(source.Path()), v.Tag)
	if err != nil {
		return nil, err
	}

	keep, err := NewKeepList(v.KeepPatterns()...)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(outDir, name)
	if err := copyFile(source.Path(), dest); err != nil {
		return nil, fmt.Errorf("duplicate source archive: %w", err)
	}

	variant := &Archive{path: dest}
	if err := variant.Prune(keep); err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("prune %s: %w", name, err)
	}

	return variant, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, in.Close())
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, in)
	return err
}
