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
	"gorm.io/gorm"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{zap: zap.New(core)}, logs
}

func TestGormTrace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM `cards`", 1 }

	tests := []struct {
		name     string
		traceSQL bool
		begin    time.Time
		err      error
		want     string
		level    zapcore.Level
	}{
		{name: "Failure", begin: time.Now(), err: errors.New("UNIQUE constraint failed: users.username"), want: "Query failed", level: zapcore.WarnLevel},
		{name: "Slow", begin: time.Now().Add(-time.Second), want: "Slow query", level: zapcore.WarnLevel},
		{name: "Traced", traceSQL: true, begin: time.Now(), want: "Query executed", level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := newObservedLogger(zapcore.DebugLevel)
			g := log.Gorm(tt.traceSQL, 100*time.Millisecond)

			g.Trace(context.Background(), tt.begin, sql, tt.err)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Message)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, "gorm", entries[0].LoggerName)
		})
	}
}

func TestGormTraceFailuresVisibleAtInfo(t *testing.T) {
	log, logs := newObservedLogger(zapcore.InfoLevel)
	g := log.Gorm(false, 0)

	g.Trace(context.Background(), time.Now(), func() (string, int64) { return "INSERT INTO `users`", 0 }, errors.New("disk I/O error"))
	g.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	g.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Query failed", logs.All()[0].Message)
}
