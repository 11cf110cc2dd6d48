package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// errorLoggerMiddleware logs the errors inner stages attached with c.Error,
// once per error, after the response status is known.
func errorLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		log := logger.Get(c).With(requestFields(c)...).With(zap.Int("status", c.Writer.Status()))
		for _, e := range c.Errors {
			log.Error("Request error", zap.Error(e.Err), zap.Any("meta", e.Meta))
		}
	}
}

// ErrorLoggerModule provides error logger middleware.
func ErrorLoggerModule(priority int) fx.Option {
	return provide(priority, func(_ chainIn, priority int) Middleware {
		return Middleware{Priority: priority, Handler: errorLoggerMiddleware()}
	})
}
