package docs

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// NewDocsModule serves the API documentation on the application's engine.
// The base api module registers docs itself; use this one for engines
// that do not include it.
func NewDocsModule(cfg Config) fx.Option {
	return fx.Invoke(func(engine *gin.Engine) error {
		return Register(engine, cfg)
	})
}
