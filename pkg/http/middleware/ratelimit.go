package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

type rateLimiter interface {
	Allow() bool
}

func newRateLimitMiddleware(limiter rateLimiter, skip gate.ExemptRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		if operational(c, skip) {
			c.Next()
			return
		}

		if !limiter.Allow() {
			problem := problems.New(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			problem.Instance = c.Request.URL.Path
			_ = c.Error(ErrRateLimitExceeded).SetMeta(problem)
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitMiddleware(in chainIn, priority int) Middleware {
	cfg := in.Config.RateLimit
	if cfg.Enabled == nil || !*cfg.Enabled {
		return Middleware{Priority: priority}
	}
	in.Log.Info("HTTP rate limit middleware initialized",
		zap.Int("requests-per-second", cfg.RequestsPerSecond),
		zap.Int("burst", cfg.Burst),
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	return Middleware{Priority: priority, Handler: newRateLimitMiddleware(limiter, in.Exempt)}
}

// RateLimitModule adds the global token-bucket rate limiter.
func RateLimitModule(priority int) fx.Option {
	return provide(priority, rateLimitMiddleware)
}
