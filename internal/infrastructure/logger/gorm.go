package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery   = 200 * time.Millisecond
	defaultMaxSQLBytes = 2048
)

// GormLogger routes GORM output through zap. Statement entries carry the
// request and trace ids of the calling context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	maxSQLBytes   int
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements are logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithMaxSQLBytes truncates logged statements to n bytes. Zero keeps them whole.
func WithMaxSQLBytes(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLBytes = n
	}
}

// NewGormLogger creates a GORM logger named "gorm" under zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: defaultSlowQuery,
		maxSQLBytes:   defaultMaxSQLBytes,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithLogger(ctx, l.logger).Zap().Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithLogger(ctx, l.logger).Zap().Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithLogger(ctx, l.logger).Zap().Sugar().Errorf(msg, data...)
	}
}

// Trace logs one executed statement. Failures log at error, slow statements
// at warn and everything else at debug. Record-not-found is not a failure.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var level gormlogger.LogLevel
	switch {
	case failed:
		level = gormlogger.Error
	case err != nil:
		return
	case slow:
		level = gormlogger.Warn
	default:
		level = gormlogger.Info
	}
	if l.level < level {
		return
	}

	sql, rows := fc()
	log := WithLogger(ctx, l.logger).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows_affected", rows),
		zap.String("sql", l.truncate(sql)),
	)

	switch level {
	case gormlogger.Error:
		log.Error("SQL statement failed", zap.Error(err))
	case gormlogger.Warn:
		log.Warn("Slow SQL statement", zap.Duration("threshold", l.slowThreshold))
	default:
		log.Debug("SQL statement")
	}
}

func (l *GormLogger) truncate(sql string) string {
	if l.maxSQLBytes <= 0 || len(sql) <= l.maxSQLBytes {
		return sql
	}
	return sql[:l.maxSQLBytes] + "...(truncated)"
}

// MapGormLogLevel maps a config log level to GORM's. Unknown values mean warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
