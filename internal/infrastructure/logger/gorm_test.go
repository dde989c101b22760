package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return `SELECT * FROM "site_shards"`, 1 }
	ctx := context.Background()

	t.Run("errors are logged, missing rows are not", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())

		l.Trace(ctx, time.Now(), query, errors.New("connection reset"))
		assert.Equal(t, 1, logs.FilterMessage("Shard query failed").Len())
	})

	t.Run("slow statements warn", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
		assert.Equal(t, 1, logs.FilterMessage("Slow shard query").Len())
	})

	t.Run("info level logs every statement at debug", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn).LogMode(gormlogger.Info)
		l.Trace(ctx, time.Now(), query, nil)
		assert.Equal(t, 1, logs.FilterMessage("Shard query").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent)
		l.Trace(ctx, time.Now(), query, errors.New("x"))
		assert.Zero(t, logs.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
