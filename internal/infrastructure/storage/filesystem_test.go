package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/application/sitedata"
)

func newTestFileSystemBackend(t *testing.T) *FileSystemBackend {
	t.Helper()
	b, err := NewFileSystemBackend(t.TempDir(), WithFileSystemLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return b
}

func TestFileSystemBackend(t *testing.T) {
	runBackendContract(t, func(t *testing.T) sitedata.ShardBackend {
		return newTestFileSystemBackend(t)
	})
}

func TestNewFileSystemBackend_Validation(t *testing.T) {
	t.Run("empty data dir returns error", func(t *testing.T) {
		_, err := NewFileSystemBackend("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data directory is required")
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "site")
		b, err := NewFileSystemBackend(dir)
		require.NoError(t, err)
		info, err := os.Stat(b.DataDir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestFileSystemBackend_Layout(t *testing.T) {
	b := newTestFileSystemBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "products/p1", []byte(`{"id":"p1"}`)))
	require.NoError(t, b.Write(ctx, "defaultLocale", []byte("zh")))

	data, err := os.ReadFile(filepath.Join(b.DataDir(), "products", "p1.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"p1"}`, string(data))

	data, err = os.ReadFile(filepath.Join(b.DataDir(), "defaultLocale.json"))
	require.NoError(t, err)
	assert.Equal(t, "zh", string(data), "scalar shards are stored raw")
}

func TestFileSystemBackend_NoTempFilesLeft(t *testing.T) {
	b := newTestFileSystemBackend(t)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, b.Write(ctx, "settings", []byte(`{"name":{}}`)))
	}
	entries, err := os.ReadDir(b.DataDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.json", entries[0].Name())
}

func TestFileSystemBackend_ListIgnoresForeignFiles(t *testing.T) {
	b := newTestFileSystemBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "products/p1", []byte(`{}`)))
	require.NoError(t, os.WriteFile(filepath.Join(b.DataDir(), "products", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b.DataDir(), "products", ".tmp-123"), []byte("x"), 0o644))

	keys, err := b.List(ctx, "products/")
	require.NoError(t, err)
	assert.Equal(t, []string{"products/p1"}, keys)
}
