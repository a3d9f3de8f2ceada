package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLoggerTrace(t *testing.T) {
	ctx := context.Background()
	upsertSQL := func() (string, int64) {
		return "INSERT INTO sales_register ...", 3
	}

	t.Run("query error is logged", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)

		gl.Trace(ctx, time.Now(), upsertSQL, errors.New("connection reset"))

		entries := recorded.FilterMessage("sql error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)

		gl.Trace(ctx, time.Now(), upsertSQL, gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("slow query is logged at warn", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gl.Trace(ctx, time.Now().Add(-time.Second), upsertSQL, nil)

		entries := recorded.FilterMessage("slow sql").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("zero threshold disables slow query logging", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(0))

		gl.Trace(ctx, time.Now().Add(-time.Second), upsertSQL, nil)

		assert.Zero(t, recorded.FilterMessage("slow sql").Len())
	})

	t.Run("statements logged at debug when level is info", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)

		gl.Trace(ctx, time.Now(), upsertSQL, nil)

		entries := recorded.FilterMessage("sql query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)

		gl.Trace(ctx, time.Now(), upsertSQL, errors.New("connection reset"))

		assert.Zero(t, recorded.Len())
	})
}

func TestGormLoggerTraceCarriesRunCorrelation(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Warn)

	ctx := context.Background()
	ctx, log := WithConnector(ctx, zap.NewNop(), "WB_SALES")
	ctx, _ = WithRunID(ctx, log, "8e7f2c1a")

	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "UPDATE ingest_checkpoints ...", 1
	}, errors.New("deadlock detected"))

	entries := recorded.FilterMessage("sql error").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "WB_SALES", fields["connector"])
	assert.Equal(t, "8e7f2c1a", fields["run_id"])
}

func TestGormLoggerLogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn)

	quieter := gl.LogMode(gormlogger.Silent)

	require.NotSame(t, gormlogger.Interface(gl), quieter)
	assert.Equal(t, gormlogger.Warn, gl.level)
	assert.Equal(t, gormlogger.Silent, quieter.(*GormLogger).level)
}

func TestGormLoggerMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("info suppressed below info level", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Info(ctx, "migrating schema %s", "sales_register")
		assert.Zero(t, recorded.Len())
	})

	t.Run("warn passes through", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Warn(ctx, "index %s missing", "idx_sales_register_sale_date")
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("error passes through", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)
		gl.Error(ctx, "migration failed: %v", errors.New("duplicate column"))
		assert.Equal(t, 1, recorded.Len())
	})
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Warn, GormLevel("warn"))
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
	assert.Equal(t, gormlogger.Warn, GormLevel(""))
}
