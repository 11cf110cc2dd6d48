package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	corsAllowMethods = []string{"GET", "POST", "DELETE", "PATCH"}
	corsAllowHeaders = []string{
		"Origin",
		"Access-Control-Allow-Credentials",
		"Access-Control-Allow-Origin",
		"Authorization",
		"Content-Type",
	}
)

// newCORSMiddleware returns nil when no origin is configured.
func newCORSMiddleware(cfg server.CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowOrigins) == 0 {
		return nil
	}

	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     corsAllowMethods,
		AllowHeaders:     corsAllowHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func corsMiddleware(in chainIn, priority int) Middleware {
	handler := newCORSMiddleware(in.Config.CORS)
	if handler != nil {
		in.Log.Info("CORS middleware initialized", zap.Strings("allow-origins", in.Config.CORS.AllowOrigins))
	}
	return Middleware{Priority: priority, Handler: handler}
}

// CORSModule adds CORS handling when server.cors.allow-origins is set.
func CORSModule(priority int) fx.Option {
	return provide(priority, corsMiddleware)
}
