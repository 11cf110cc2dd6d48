package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// recoveryMiddleware turns a panic into a 500 problem. It wraps every other
// middleware, including the problem renderer, so it writes the response
// itself unless the handler already started one.
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.Get(c).Error("Panic recovered",
				append(requestFields(c), zap.Any("panic", r), zap.Stack("stack"))...)

			c.Abort()
			if c.Writer.Written() {
				return
			}
			p := problems.InternalServerError("internal server error")
			p.Instance = c.Request.URL.Path
			p.TraceID = problems.TraceID(c.Request.Context())
			c.JSON(p.Status, p)
		}()
		c.Next()
	}
}

// RecoveryModule provides recovery middleware.
func RecoveryModule(priority int) fx.Option {
	return provide(priority, func(_ chainIn, priority int) Middleware {
		return Middleware{Priority: priority, Handler: recoveryMiddleware()}
	})
}
