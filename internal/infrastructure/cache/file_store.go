package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// ErrQuotaExceeded is returned when a write would take the cache over its size limit
var ErrQuotaExceeded = errors.New("local cache quota exceeded")

var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FileStore keeps each key in <dir>/<key>.json and caps the total size at maxBytes
// (0 means unlimited).
type FileStore struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewFileStore creates dir if needed
func NewFileStore(dir string, maxBytes int64, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if !fileKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Get returns the file contents of key
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// usage sums the sizes of all cache files except skip
func (s *FileStore) usage(skip string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Join(s.dir, e.Name()) == skip {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Set replaces the file of key atomically. The previous value survives a failed write.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 {
		used, err := s.usage(p)
		if err != nil {
			return fmt.Errorf("failed to measure cache usage: %w", err)
		}
		if used+int64(len(value)) > s.maxBytes {
			s.logger.Warn("Local cache full",
				zap.String("key", key),
				zap.Int("bytes", len(value)),
				zap.Int64("used", used),
				zap.Int64("max_bytes", s.maxBytes),
			)
			return ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Delete removes the file of key
func (s *FileStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
