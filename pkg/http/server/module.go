package server

import (
	"context"
	"net/http"

	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ComponentName is the readiness tracker entry of the HTTP listener.
const ComponentName = "http-server"

type serverOptions struct {
	config *Config
}

// Option configures the HTTP server module.
type Option func(*serverOptions)

// WithServerConfig provides a static server Config (useful for tests).
// When set, the configuration will not be loaded from viper.
func WithServerConfig(cfg Config) Option {
	return func(opts *serverOptions) {
		opts.config = &cfg
	}
}

// NewHTTPServerModule serves the http.Handler provided by the middleware
// module for the lifetime of the application.
func NewHTTPServerModule(opts ...Option) fx.Option {
	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Module("http-server",
		configProvider(o),
		fx.Invoke(startHTTPServer),
	)
}

func configProvider(o *serverOptions) fx.Option {
	if o.config == nil {
		return fx.Provide(newConfig)
	}
	cfg := *o.config
	cfg.SetDefaults()
	return fx.Supply(cfg)
}

func startHTTPServer(lc fx.Lifecycle, log *zap.Logger, conf Config, handler http.Handler, tracker *readiness.Tracker, shutdowner fx.Shutdowner) {
	var srv Server
	markReady := tracker.AddComponent(ComponentName)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// all routes are registered by now
			srv = newServer(log, conf, handler)

			go func() {
				if err := srv.ServeWithReadyCallback(markReady); err != nil {
					log.Error("HTTP server failed, shutting down application", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if srv != nil {
				return srv.Shutdown(ctx)
			}
			return nil
		},
	})
}
