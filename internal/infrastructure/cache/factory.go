package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/infrastructure/config"
)

// Open creates the cache selected by cfg.Driver. When Redis is configured but unreachable,
// it falls back to the file store so the console still starts.
func Open(cfg *config.CacheConfig, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.CacheDriverRedis:
		store, err := NewRedisStore(cfg.Redis, cfg.KeyPrefix)
		if err == nil {
			logger.Info("Using Redis local cache", zap.String("addr", cfg.Redis.Addr()))
			return New(store, WithLogger(logger)), nil
		}
		logger.Warn("Redis unavailable, falling back to file cache", zap.Error(err))
		fallthrough

	case config.CacheDriverFile, "":
		store, err := NewFileStore(cfg.Dir, cfg.MaxBytes, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using file local cache", zap.String("dir", cfg.Dir))
		return New(store, WithLogger(logger)), nil

	case config.CacheDriverMemory:
		return New(NewMemoryStore(), WithLogger(logger)), nil
	}
	return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
}
