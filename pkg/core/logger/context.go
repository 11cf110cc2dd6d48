package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

type contextKey struct{}

// fallback is what Get returns for contexts without a logger. It is a nop
// logger until the logging module builds the application logger.
var fallback atomic.Pointer[zap.Logger]

func init() {
	fallback.Store(zap.NewNop())
}

// Default returns the logger used for contexts that carry none.
func Default() *zap.Logger {
	return fallback.Load()
}

// SetDefault replaces the logger used for contexts that carry none and
// returns the previous one.
func SetDefault(l *zap.Logger) *zap.Logger {
	return fallback.Swap(l)
}

// Get returns the request or operation scoped logger of ctx, falling back
// to Default. A nil ctx is allowed.
func Get(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// With attaches logger to ctx.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithFields attaches the logger of ctx extended by fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return With(ctx, Get(ctx).With(fields...))
}
