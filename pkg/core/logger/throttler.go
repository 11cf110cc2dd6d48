package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultThrottleInterval = 5 * time.Minute

// Throttler demotes repeated log lines. Each key gets one entry at the
// requested level per interval, the rest go out at DEBUG. Useful for polling
// loops that would otherwise repeat the same warning on every attempt.
type Throttler struct {
	log      *zap.Logger
	interval time.Duration
	limiters sync.Map // map[string]*rate.Limiter
}

// NewThrottler returns a Throttler. A zero interval means five minutes.
func NewThrottler(log *zap.Logger, interval time.Duration) *Throttler {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	return &Throttler{log: log, interval: interval}
}

func (t *Throttler) Warn(key, msg string, fields ...zap.Field) {
	if t.limiter(key).Allow() {
		t.log.Warn(msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

func (t *Throttler) Info(key, msg string, fields ...zap.Field) {
	if t.limiter(key).Allow() {
		t.log.Info(msg, fields...)
		return
	}
	t.log.Debug(msg, fields...)
}

func (t *Throttler) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(rate.Every(t.interval), 1))
	return actual.(*rate.Limiter)
}
