package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var errSerialization = errors.New("could not serialize access")

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	clone, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, gormlogger.Warn, clone.logLevel)
}

func TestGormLogger_TraceError(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-1")
	gormLog.Trace(ctx, time.Now(), sqlFn("UPDATE ledger_transactions SET status = 'PAID'", 0), errors.New("connection reset"))

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, "SQL error", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
}

func TestGormLogger_RetryableErrorsAreWarnings(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn,
		WithRetryableErrors(func(err error) bool { return errors.Is(err, errSerialization) }))

	gormLog.Trace(context.Background(), time.Now(),
		sqlFn("INSERT INTO document_sequences ...", 0), errSerialization)

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	assert.Equal(t, "SQL retryable error", recorded.All()[0].Message)
}

func TestGormLogger_RetryableErrorsAreSilentBelowWarn(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error,
		WithRetryableErrors(func(err error) bool { return errors.Is(err, errSerialization) }))

	gormLog.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), errSerialization)

	assert.Equal(t, 0, recorded.Len())
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	gormLog.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, recorded.Len())
}

func TestGormLogger_SlowQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

	gormLog.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn("SELECT * FROM document_sequences", 1), nil)
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	assert.Equal(t, time.Millisecond, recorded.All()[0].ContextMap()["threshold"])
}

func TestGormLogger_TruncatesLongStatements(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info, WithMaxSQLLength(10))

	gormLog.Trace(context.Background(), time.Now(), sqlFn(strings.Repeat("x", 50), 3), nil)

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "xxxxxxxxxx...(truncated)", recorded.All()[0].ContextMap()["sql"])
}

func TestGormLogger_Silent(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Silent)
	gormLog.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), errors.New("x"))
	assert.Equal(t, 0, recorded.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
