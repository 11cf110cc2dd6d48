package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrBulkheadFull = errors.New("too many concurrent requests")

// newHTTPBulkheadMiddleware limits the number of requests handled at once.
// A request waits up to timeout for a slot before it is rejected with 503.
func newHTTPBulkheadMiddleware(maxConcurrent int, timeout time.Duration, skip gate.ExemptRoutes, log *zap.Logger) gin.HandlerFunc {
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	return func(c *gin.Context) {
		if operational(c, skip) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn("HTTP bulkhead acquisition failed - rejecting request",
				zap.Duration("timeout", timeout),
				zap.Int("max-concurrent", maxConcurrent),
				zap.Error(err),
			)

			problem := problems.ServiceUnavailable("too many concurrent requests, please try again later")
			problem.Instance = c.Request.URL.Path
			_ = c.Error(ErrBulkheadFull).SetMeta(problem)
			c.Abort()
			return
		}
		defer sem.Release(1)

		c.Next()
	}
}

func bulkheadMiddleware(in chainIn, priority int) Middleware {
	cfg := in.Config.Bulkhead
	if cfg.Enabled == nil || !*cfg.Enabled {
		return Middleware{Priority: priority}
	}
	in.Log.Info("HTTP bulkhead initialized",
		zap.Int("max-concurrent", cfg.MaxConcurrent),
		zap.Duration("timeout", cfg.Timeout),
	)
	return Middleware{
		Priority: priority,
		Handler:  newHTTPBulkheadMiddleware(cfg.MaxConcurrent, cfg.Timeout, in.Exempt, in.Log),
	}
}

// HTTPBulkheadModule adds the concurrency limiting middleware.
func HTTPBulkheadModule(priority int) fx.Option {
	return provide(priority, bulkheadMiddleware)
}
