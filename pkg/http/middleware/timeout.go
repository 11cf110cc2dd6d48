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
)

var ErrRequestTimeout = errors.New("request timeout")

// newTimeoutMiddleware puts a deadline on the request context. Handlers are
// expected to honour it; when the deadline passed and nothing was written a
// 504 problem is produced.
func newTimeoutMiddleware(timeout time.Duration, skip gate.ExemptRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		if operational(c, skip) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}

		problem := problems.GatewayTimeout("request took too long to process")
		problem.Instance = c.Request.URL.Path
		_ = c.Error(ErrRequestTimeout).SetMeta(problem)
		c.Abort()
	}
}

func timeoutMiddleware(in chainIn, priority int) Middleware {
	cfg := in.Config.Timeout
	if cfg.Enabled == nil || !*cfg.Enabled {
		return Middleware{Priority: priority}
	}
	in.Log.Info("HTTP timeout middleware initialized",
		zap.Duration("request-timeout", cfg.RequestTimeout),
	)
	return Middleware{Priority: priority, Handler: newTimeoutMiddleware(cfg.RequestTimeout, in.Exempt)}
}

// TimeoutModule adds the request timeout middleware.
func TimeoutModule(priority int) fx.Option {
	return provide(priority, timeoutMiddleware)
}
