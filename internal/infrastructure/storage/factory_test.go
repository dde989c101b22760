package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	infraconfig "github.com/catalogsite/backend/internal/infrastructure/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	t.Run("filesystem", func(t *testing.T) {
		b, err := Open(ctx, &infraconfig.StorageConfig{
			Driver:  infraconfig.StorageDriverFilesystem,
			DataDir: t.TempDir(),
		}, logger)
		require.NoError(t, err)
		assert.IsType(t, &FileSystemBackend{}, b.ShardBackend)
		assert.NoError(t, b.Close())
	})

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, &infraconfig.StorageConfig{Driver: infraconfig.StorageDriverMemory}, logger)
		require.NoError(t, err)
		assert.IsType(t, &MemoryBackend{}, b.ShardBackend)
	})

	t.Run("sql on sqlite", func(t *testing.T) {
		b, err := Open(ctx, &infraconfig.StorageConfig{
			Driver:    infraconfig.StorageDriverSQL,
			SQLDriver: "sqlite",
			SQLDSN:    "file:" + filepath.Join(t.TempDir(), "site.db"),
		}, logger)
		require.NoError(t, err)
		assert.IsType(t, &GormBackend{}, b.ShardBackend)
		assert.NoError(t, b.Close())
	})

	t.Run("s3 without credentials fails", func(t *testing.T) {
		_, err := Open(ctx, &infraconfig.StorageConfig{Driver: infraconfig.StorageDriverS3, Bucket: "b"}, logger)
		assert.Error(t, err)
	})

	t.Run("unknown driver fails", func(t *testing.T) {
		_, err := Open(ctx, &infraconfig.StorageConfig{Driver: "tape"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage driver")
	})
}
