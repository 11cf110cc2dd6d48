package modules

import (
	"github.com/mediatechnologycenter/api-commons/pkg/http/baseapi"
	"github.com/mediatechnologycenter/api-commons/pkg/http/middleware"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"go.uber.org/fx"
)

type httpOptions struct {
	server []server.Option
	api    []baseapi.Option
}

// HTTPOption is a functional option for configuring the HTTP module.
type HTTPOption func(*httpOptions)

// WithServerConfig supplies the server Config instead of the server key.
func WithServerConfig(cfg server.Config) HTTPOption {
	return func(o *httpOptions) {
		o.server = append(o.server, server.WithServerConfig(cfg))
	}
}

// WithAPIOptions forwards options to the base api module.
func WithAPIOptions(opts ...baseapi.Option) HTTPOption {
	return func(o *httpOptions) {
		o.api = append(o.api, opts...)
	}
}

// NewHTTPModule serves a gin engine with the middleware chain, the
// readiness gate, the operational routes and the api docs. Services
// register their own routes on the provided *gin.Engine.
//
// Example usage:
//
//	fx.New(
//	    core.NewCoreModule(),
//	    modules.NewHTTPModule(),
//	    fx.Invoke(registerRoutes),
//	)
func NewHTTPModule(opts ...HTTPOption) fx.Option {
	o := &httpOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return fx.Options(
		server.NewHTTPServerModule(o.server...),
		middleware.NewGinModule(),
		baseapi.NewBaseAPIModule(o.api...),
	)
}
