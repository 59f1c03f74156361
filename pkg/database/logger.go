package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

const slowQueryThreshold = 200 * time.Millisecond

// zerologLogger routes GORM's logging through the request-scoped zerolog logger.
type zerologLogger struct {
	level logger.LogLevel
}

// NewLogger returns a GORM logger at the named level.
func NewLogger(level string) logger.Interface {
	return &zerologLogger{level: parseLogLevel(level)}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (l *zerologLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *zerologLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		zl := log.Ctx(ctx)
		zl.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		zl := log.Ctx(ctx)
		zl.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		zl := log.Ctx(ctx)
		zl.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	zl := log.Ctx(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		zl.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur(log.FieldLatency, elapsed).Msg("query failed")
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		zl.Warn().Str("sql", sql).Int64("rows", rows).Dur(log.FieldLatency, elapsed).Msg("slow query")
	case l.level >= logger.Info:
		sql, rows := fc()
		zl.Debug().Str("sql", sql).Int64("rows", rows).Dur(log.FieldLatency, elapsed).Msg("query")
	}
}
