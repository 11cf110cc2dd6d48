package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// loggerMiddleware attaches the request-scoped logger to the request context
// and logs every non-operational request at DEBUG.
func loggerMiddleware(log *zap.Logger, skip gate.ExemptRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), log))

		if operational(c, skip) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := append(requestFields(c),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		)
		logger.Get(c).Debug("Incoming request", fields...)
	}
}

// LoggerModule provides request logging middleware.
func LoggerModule(priority int) fx.Option {
	return provide(priority, func(in chainIn, priority int) Middleware {
		return Middleware{Priority: priority, Handler: loggerMiddleware(in.Log, in.Exempt)}
	})
}
