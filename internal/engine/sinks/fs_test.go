package sinks

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSink_Kind(t *testing.T) {
	sink := NewFilesystemSink(afero.NewMemMapFs())
	assert.Equal(t, "filesystem", sink.Kind())
}

func TestFilesystemSink_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	err := sink.Write(t.Context(), "flibusta_fb2_local.inpx", bytes.NewBufferString("PK..."))
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "flibusta_fb2_local.inpx")
	require.NoError(t, err)
	assert.Equal(t, "PK...", string(content))
}

func TestFilesystemSink_Write_NestedPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	err := sink.Write(t.Context(), "catalogs/2026/flibusta_usr_local.inpx", bytes.NewBufferString("data"))
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "catalogs/2026/flibusta_usr_local.inpx")
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestNewFilesystemSinkFromPath_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "variants")

	sink, err := NewFilesystemSinkFromPath(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Write(t.Context(), "a.inpx", bytes.NewBufferString("x")))

	content, err := os.ReadFile(filepath.Join(dir, "a.inpx"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}
