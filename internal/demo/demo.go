// Package demo assembles a minimal service on top of the base api: the
// operational routes, the docs and one gated echo route.
package demo

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core"
	"github.com/mediatechnologycenter/api-commons/pkg/core/config"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	modules "github.com/mediatechnologycenter/api-commons/pkg/http"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"github.com/mediatechnologycenter/api-commons/pkg/observability"
	"go.uber.org/fx"
)

const (
	ServiceName = "apicommons-demo"
	RouteEcho   = "/api/echo"
)

type Config struct {
	Version string
	// Port overrides server.port when non-zero.
	Port int
	// ReadyAfter delays readiness of the echo route after startup.
	ReadyAfter time.Duration
	// ConfigFile is an optional yaml file with the logger, server and api
	// keys.
	ConfigFile string
}

type EchoRequest struct {
	Text string `json:"text" binding:"required"`
}

// Options returns the fx options of the demo service.
func Options(cfg Config) fx.Option {
	coreOpts := []core.Option{
		core.WithAppConfig(config.AppConfig{
			Environment:    "local",
			ServiceName:    ServiceName,
			ServiceVersion: cfg.Version,
		}),
		core.WithoutEnvFile(),
	}
	if cfg.ConfigFile != "" {
		coreOpts = append(coreOpts, core.WithConfigFile(cfg.ConfigFile))
	} else {
		coreOpts = append(coreOpts, core.WithoutConfigFile())
	}

	var httpOpts []modules.HTTPOption
	if cfg.Port != 0 {
		serverCfg := server.Config{Port: cfg.Port}
		httpOpts = append(httpOpts, modules.WithServerConfig(serverCfg))
	}

	return fx.Options(
		core.NewCoreModule(coreOpts...),
		modules.NewHTTPModule(httpOpts...),
		observability.NewObservabilityModule(),
		fx.Provide(func() readiness.Predicate {
			return readiness.After(time.Now(), cfg.ReadyAfter)
		}),
		fx.Invoke(registerRoutes),
	)
}

func registerRoutes(engine *gin.Engine) {
	engine.POST(RouteEcho, func(c *gin.Context) {
		var req EchoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, err.Error())
			return
		}
		c.JSON(http.StatusOK, req)
	})
}
