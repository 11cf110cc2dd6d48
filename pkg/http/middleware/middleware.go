package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"go.uber.org/zap"
)

// Middleware represents a Gin middleware with priority.
// Lower priorities run first and therefore wrap the ones after them.
// A nil Handler is skipped, which is how disabled middlewares opt out.
type Middleware struct {
	Priority int
	Handler  gin.HandlerFunc
}

// requestFields returns common request fields for logging.
func requestFields(c *gin.Context) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.String("client_ip", c.ClientIP()),
	}
}

// operational reports whether the request targets an operational route
// (liveness, readiness, status, docs). Those routes skip request logging
// and throttling using the same matcher as the readiness gate.
func operational(c *gin.Context, routes gate.ExemptRoutes) bool {
	return routes.Matches(c.Request.URL.Path)
}
