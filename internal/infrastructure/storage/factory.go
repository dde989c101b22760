package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/sitedata"
	infraconfig "github.com/catalogsite/backend/internal/infrastructure/config"
)

// Backend is an opened shard backend plus the function releasing its resources
type Backend struct {
	sitedata.ShardBackend
	Close func() error
}

// Open creates the shard backend selected by cfg.Driver
func Open(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noClose := func() error { return nil }

	switch cfg.Driver {
	case infraconfig.StorageDriverFilesystem, "":
		b, err := NewFileSystemBackend(cfg.DataDir, WithFileSystemLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("Using filesystem shard storage", zap.String("data_dir", b.DataDir()))
		return &Backend{ShardBackend: b, Close: noClose}, nil

	case infraconfig.StorageDriverS3:
		b, err := NewS3Backend(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Using S3 shard storage",
			zap.String("bucket", b.GetBucket()),
			zap.String("prefix", cfg.Prefix),
		)
		return &Backend{ShardBackend: b, Close: noClose}, nil

	case infraconfig.StorageDriverSQL:
		b, err := OpenGormBackend(cfg, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using SQL shard storage", zap.String("sql_driver", cfg.SQLDriver))
		return &Backend{ShardBackend: b, Close: b.Close}, nil

	case infraconfig.StorageDriverMemory:
		logger.Warn("Using in-memory shard storage; data is lost on restart")
		return &Backend{ShardBackend: NewMemoryBackend(), Close: noClose}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}
