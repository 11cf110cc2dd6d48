package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func levels(logs *observer.ObservedLogs) []zapcore.Level {
	var out []zapcore.Level
	for _, e := range logs.All() {
		out = append(out, e.Level)
	}
	return out
}

func TestNewThrottler_DefaultInterval(t *testing.T) {
	assert.Equal(t, defaultThrottleInterval, NewThrottler(zap.NewNop(), 0).interval)
	assert.Equal(t, time.Second, NewThrottler(zap.NewNop(), time.Second).interval)
}

func TestThrottler_Warn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewThrottler(zap.New(core), time.Hour)

	throttler.Warn("poll", "not ready", zap.String("url", "http://svc"))
	throttler.Warn("poll", "not ready")
	throttler.Warn("other", "not ready")

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, []zapcore.Level{zapcore.WarnLevel, zapcore.DebugLevel, zapcore.WarnLevel}, levels(logs))
	assert.Equal(t, "http://svc", logs.All()[0].ContextMap()["url"])
}

func TestThrottler_Info(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewThrottler(zap.New(core), time.Hour)

	throttler.Info("k", "waiting")
	throttler.Info("k", "waiting")

	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.DebugLevel}, levels(logs))
}

func TestThrottler_IntervalElapses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewThrottler(zap.New(core), 20*time.Millisecond)

	throttler.Warn("k", "msg")
	time.Sleep(40 * time.Millisecond)
	throttler.Warn("k", "msg")

	assert.Equal(t, []zapcore.Level{zapcore.WarnLevel, zapcore.WarnLevel}, levels(logs))
}

func TestThrottler_ConcurrentAccess(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewThrottler(zap.New(core), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			throttler.Warn("shared", "msg")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, logs.Len())
	assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
}
