package inpx

import (
	"errors"
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inpxtools/inpxsplit/internal/engine"
)

var errDiskRead = errors.New("input/output error")

// unreadableFs serves one named file whose reads always fail.
type unreadableFs struct {
	afero.Fs
	name string
}

func (f *unreadableFs) Open(name string) (afero.File, error) {
	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	if path.Base(name) == f.name {
		return &unreadableFile{File: file}, nil
	}
	return file, nil
}

type unreadableFile struct {
	afero.File
}

func (f *unreadableFile) Read(p []byte) (int, error) {
	return 0, errDiskRead
}

func writeRecordFile(t *testing.T, fsys afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
}

func TestCountRecords(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/author-fb2-1.inp", "a\nb\nc\n")
	writeRecordFile(t, fsys, "/author-fb2-2.inp", "")
	writeRecordFile(t, fsys, "/author-fb2-3.inp", "a\nb\nc\nd\ne\n")
	writeRecordFile(t, fsys, "/author-usr-1.inp", "x\ny\n")

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
	assert.Equal(t, 3, files)
}

func TestCountRecords_TrailingLineWithoutNewline(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/author-fb2-1.inp", "a\nb\nc")

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 1, files)
}

func TestCountRecords_EmptyFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/author-fb2-1.inp", "")

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 1, files)
}

func TestCountRecords_NoMatches(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/author-usr-1.inp", "x\n")

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, files)
}

func TestCountRecords_CaseInsensitiveMatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/AUTHOR-FB2-1.INP", "a\nb\n")

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 1, files)
}

func TestCountRecords_Progress(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRecordFile(t, fsys, "/author-fb2-1.inp", "a\n")
	writeRecordFile(t, fsys, "/author-fb2-2.inp", "b\n")

	type report struct {
		current, total int
		label          string
	}
	var reports []report
	progress := engine.ProgressFunc(func(current, total int, label string) {
		reports = append(reports, report{current, total, label})
	})

	_, _, err := CountRecords(fsys, "*fb2-*.inp", progress)
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].current)
	assert.Equal(t, 2, reports[0].total)
	assert.Equal(t, 2, reports[1].current)
	assert.Equal(t, 2, reports[1].total)
}

func TestCountRecords_ReadFailureDiscardsPartialCount(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeRecordFile(t, mem, "/author-fb2-1.inp", "a\nb\n")
	writeRecordFile(t, mem, "/author-fb2-2.inp", "c\n")

	fsys := &unreadableFs{Fs: mem, name: "author-fb2-2.inp"}

	count, files, err := CountRecords(fsys, "*fb2-*.inp", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskRead)
	assert.Contains(t, err.Error(), "author-fb2-2.inp")
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 2, files)
}

func TestCountRecords_MatchesKeptEntries(t *testing.T) {
	glob := "*fb2-*.inp"
	names := []string{
		"author-fb2-1.inp",
		"AUTHOR-FB2-2.INP",
		"author-usr-1.inp",
		"version.info",
	}

	keep, err := NewKeepList(glob)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	for _, name := range names {
		writeRecordFile(t, fsys, "/"+name, "x\n")
	}

	_, files, err := CountRecords(fsys, glob, nil)
	require.NoError(t, err)

	// Whatever the glob keeps during pruning is exactly what gets counted.
	kept := 0
	for _, name := range names {
		if keep.Keep(name) {
			kept++
		}
	}
	assert.Equal(t, kept, files)
	assert.Equal(t, 2, files)
}

func TestCountRecords_BadGlob(t *testing.T) {
	_, _, err := CountRecords(afero.NewMemMapFs(), "[", nil)
	assert.ErrorIs(t, err, ErrInvalidKeepPattern)
}
