package inpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/inpxtools/inpxsplit/internal/engine"
)

// CountRecords sums line counts across the record files under fsys whose base
// name matches recordGlob. One line is one book record: a final line without
// a trailing newline still counts, a trailing newline does not double-count,
// and an empty file contributes zero. Any read failure aborts the whole count;
// partial totals are never returned. Progress is reported after each file as
// (done, total, file) on a best-effort basis.
//
// The returned file count lets callers distinguish a genuine zero-book total
// from a glob that matched nothing.
func CountRecords(fsys afero.Fs, recordGlob string, progress engine.Progress) (int64, int, error) {
	if progress == nil {
		progress = engine.NopProgress{}
	}

	files, err := matchRecordFiles(fsys, recordGlob)
	if err != nil {
		return 0, 0, err
	}

	var total int64
	for i, file := range files {
		n, err := countLines(fsys, file)
		if err != nil {
			return 0, len(files), fmt.Errorf("record file %s: %w", file, err)
		}

		total += n
		progress.Report(i+1, len(files), file)
	}

	return total, len(files), nil
}

// matchRecordFiles walks fsys and returns the sorted paths whose base name
// matches recordGlob. Matching goes through the same keep-list rules used for
// pruning, so an entry kept in the variant archive is always counted under
// the same glob.
func matchRecordFiles(fsys afero.Fs, recordGlob string) ([]string, error) {
	if _, err := path.Match(recordGlob, ""); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidKeepPattern, recordGlob, err)
	}

	keep, err := NewKeepList(recordGlob)
	if err != nil {
		return nil, err
	}

	var files []string
	err = afero.Walk(fsys, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if keep.Keep(path.Base(filepath.ToSlash(p))) {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate record files: %w", err)
	}

	slices.Sort(files)
	return files, nil
}

func countLines(fsys afero.Fs, name string) (lines int64, err error) {
	f, err := fsys.Open(name)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var last byte
	var seen bool
	buf := make([]byte, 64*1024)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			seen = true
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, readErr
		}
	}

	if seen && last != '\n' {
		lines++
	}

	return lines, nil
}
