package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/sitedata"
)

const shardExt = ".json"

// Ensure FileSystemBackend implements ShardBackend
var _ sitedata.ShardBackend = (*FileSystemBackend)(nil)

// FileSystemBackend stores shard a/b as <dataDir>/a/b.json
type FileSystemBackend struct {
	dataDir string
	logger  *zap.Logger
}

// FileSystemOption is a functional option for configuring FileSystemBackend
type FileSystemOption func(*FileSystemBackend)

// WithFileSystemLogger sets the logger
func WithFileSystemLogger(logger *zap.Logger) FileSystemOption {
	return func(b *FileSystemBackend) {
		b.logger = logger
	}
}

// NewFileSystemBackend creates the data directory if needed
func NewFileSystemBackend(dataDir string, opts ...FileSystemOption) (*FileSystemBackend, error) {
	if dataDir == "" {
		return nil, errors.New("storage data directory is required")
	}
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", abs, err)
	}

	b := &FileSystemBackend{dataDir: abs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// path maps a validated key to its file. Keys never contain "." or "..", so the result
// always stays under dataDir.
func (b *FileSystemBackend) path(key string) (string, error) {
	if err := sitedata.ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(b.dataDir, filepath.FromSlash(key)+shardExt)
	if !strings.HasPrefix(p, b.dataDir+string(filepath.Separator)) {
		return "", fmt.Errorf("shard key %q escapes data directory", key)
	}
	return p, nil
}

// Read returns the file contents of key
func (b *FileSystemBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sitedata.ErrShardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shard file: %w", err)
	}
	return data, nil
}

// Write replaces the file of key atomically: data goes to a temp file in the same directory
// which is then renamed over the target.
func (b *FileSystemBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write shard file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync shard file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close shard file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace shard file: %w", err)
	}

	b.logger.Debug("Shard written", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Delete removes the file of key
func (b *FileSystemBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete shard file: %w", err)
	}
	return nil
}

// List walks dataDir and returns the keys of all shard files starting with prefix
func (b *FileSystemBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	root := b.dataDir
	// Only descend into the directory the prefix points at.
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		root = filepath.Join(b.dataDir, filepath.FromSlash(prefix[:i]))
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), shardExt) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(b.dataDir, p)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), shardExt)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}
	return keys, nil
}

// DataDir returns the absolute data directory
func (b *FileSystemBackend) DataDir() string {
	return b.dataDir
}
