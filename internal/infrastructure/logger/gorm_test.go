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

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info, WithSlowThreshold(time.Second))
	assert.Equal(t, time.Second, gormLog.slowThreshold)

	newLogger, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newLogger.level)
	assert.Equal(t, gormlogger.Info, gormLog.level)
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(100*time.Millisecond))
	ctx := WithRequestID(context.Background(), "req-db")

	t.Run("statement at debug with request id", func(t *testing.T) {
		gormLog.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "SQL statement", entries[0].Message)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "req-db", entries[0].ContextMap()["request_id"])
		assert.Equal(t, int64(1), entries[0].ContextMap()["rows_affected"])
		assert.Equal(t, "gorm", entries[0].LoggerName)
	})

	t.Run("slow query at warn", func(t *testing.T) {
		gormLog.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT 1", 1), nil)
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "Slow SQL statement", entries[0].Message)
	})

	t.Run("errors at error", func(t *testing.T) {
		gormLog.Trace(ctx, time.Now(), sqlFn("INSERT", 0), errors.New("connection reset"))
		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "SQL statement failed", entries[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gormLog.Trace(ctx, time.Now(), sqlFn("SELECT", 0), gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.TakeAll())
	})

	t.Run("error level drops slow statements", func(t *testing.T) {
		gormLog.LogMode(gormlogger.Error).Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT", 0), nil)
		assert.Empty(t, recorded.TakeAll())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sqlFn("SELECT", 0), errors.New("x"))
		assert.Empty(t, recorded.TakeAll())
	})
}

func TestGormLogger_TruncatesSQL(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Info, WithMaxSQLBytes(6))

	gormLog.Trace(context.Background(), time.Now(), sqlFn("SELECT number FROM invoice_number_reservations", 0), nil)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT...(truncated)", entries[0].ContextMap()["sql"])
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), gormlogger.Warn)
	ctx := context.Background()

	gormLog.Info(ctx, "info %s", "dropped")
	gormLog.Warn(ctx, "warn %s", "kept")
	gormLog.Error(ctx, "error %d", 1)

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn kept", entries[0].Message)
	assert.Equal(t, "error 1", entries[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
