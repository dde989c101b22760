package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/catalogsite/backend/internal/application/sitedata"
	infraconfig "github.com/catalogsite/backend/internal/infrastructure/config"
	applog "github.com/catalogsite/backend/internal/infrastructure/logger"
)

// ShardModel is one row of the site_shards table
type ShardModel struct {
	Key       string    `gorm:"column:shard_key;type:varchar(300);primaryKey"`
	Data      []byte    `gorm:"column:data;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (ShardModel) TableName() string {
	return "site_shards"
}

// Ensure GormBackend implements ShardBackend
var _ sitedata.ShardBackend = (*GormBackend)(nil)

// GormBackend stores shards as rows of site_shards on sqlite or postgres
type GormBackend struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormBackend wraps an open connection. Call Migrate before first use.
func NewGormBackend(db *gorm.DB, logger *zap.Logger) *GormBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormBackend{db: db, logger: logger}
}

// OpenGormBackend opens the configured database, enables tracing and migrates the shard table
func OpenGormBackend(cfg *infraconfig.StorageConfig, log *zap.Logger) (*GormBackend, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	var dialector gorm.Dialector
	switch cfg.SQLDriver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.SQLDSN)
	case "postgres":
		dialector = postgres.Open(cfg.SQLDSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.SQLDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 applog.NewGormLogger(log, applog.MapGormLogLevel(cfg.SQLLogLevel)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to enable database tracing: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := NewGormBackend(db, log)
	if err := b.Migrate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Migrate creates or updates the site_shards table
func (b *GormBackend) Migrate() error {
	if err := b.db.AutoMigrate(&ShardModel{}); err != nil {
		return fmt.Errorf("failed to migrate site_shards: %w", err)
	}
	return nil
}

// Read returns the data column of key
func (b *GormBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := sitedata.ValidateKey(key); err != nil {
		return nil, err
	}
	var row ShardModel
	err := b.db.WithContext(ctx).Where("shard_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sitedata.ErrShardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shard row: %w", err)
	}
	return row.Data, nil
}

// Write upserts the row of key
func (b *GormBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := sitedata.ValidateKey(key); err != nil {
		return err
	}
	row := ShardModel{Key: key, Data: data, UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shard_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write shard row: %w", err)
	}
	return nil
}

// Delete removes the row of key
func (b *GormBackend) Delete(ctx context.Context, key string) error {
	if err := sitedata.ValidateKey(key); err != nil {
		return err
	}
	if err := b.db.WithContext(ctx).Where("shard_key = ?", key).Delete(&ShardModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete shard row: %w", err)
	}
	return nil
}

// List returns the keys starting with prefix
func (b *GormBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	query := b.db.WithContext(ctx).Model(&ShardModel{})
	if prefix != "" {
		// Keys only contain [A-Za-z0-9_/-]; '_' is the one LIKE wildcard to escape.
		pattern := strings.ReplaceAll(prefix, "_", `\_`) + "%"
		query = query.Where(`shard_key LIKE ? ESCAPE '\'`, pattern)
	}
	if err := query.Pluck("shard_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list shard rows: %w", err)
	}
	return keys, nil
}

// Close closes the underlying connection pool
func (b *GormBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
