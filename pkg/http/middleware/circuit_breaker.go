package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"github.com/sony/gobreaker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	errServerError        = errors.New("server error")
)

func newCircuitBreaker(cfg server.CircuitBreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "http",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// newCircuitBreakerMiddleware counts 5xx responses as failures. An aborted
// request counts when its first error renders as a 5xx problem, unless it
// was a readiness rejection or a cancelled request. The gate's not-ready
// 503 carries no error and is never counted.
func newCircuitBreakerMiddleware(cb *gobreaker.CircuitBreaker, skip gate.ExemptRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		if operational(c, skip) {
			c.Next()
			return
		}

		_, err := cb.Execute(func() (interface{}, error) {
			c.Next()

			if c.IsAborted() {
				if abortedWithServerError(c) {
					return nil, errServerError
				}
				return nil, nil
			}
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, errServerError
			}
			return nil, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			problem := problems.ServiceUnavailable("service is temporarily unavailable due to circuit breaker")
			problem.Instance = c.Request.URL.Path
			_ = c.Error(ErrCircuitBreakerOpen).SetMeta(problem)
			c.Abort()
		}
	}
}

func abortedWithServerError(c *gin.Context) bool {
	if len(c.Errors) == 0 {
		return false
	}
	first := c.Errors[0]
	if gate.IsNotReady(first.Err) || errors.Is(first.Err, context.Canceled) {
		return false
	}
	return problemFor(c, first).Status >= http.StatusInternalServerError
}

func circuitBreakerMiddleware(in chainIn, priority int) Middleware {
	cfg := in.Config.CircuitBreaker
	if cfg.Enabled == nil || !*cfg.Enabled {
		return Middleware{Priority: priority}
	}
	in.Log.Info("Circuit breaker middleware initialized",
		zap.Uint32("failure-threshold", cfg.FailureThreshold),
		zap.Duration("timeout", cfg.Timeout),
		zap.Duration("interval", cfg.Interval),
		zap.Uint32("max-requests", cfg.MaxRequests),
	)
	return Middleware{
		Priority: priority,
		Handler:  newCircuitBreakerMiddleware(newCircuitBreaker(cfg, in.Log), in.Exempt),
	}
}

// CircuitBreakerModule adds the circuit breaker middleware.
func CircuitBreakerModule(priority int) fx.Option {
	return provide(priority, circuitBreakerMiddleware)
}
