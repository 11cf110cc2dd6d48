package baseapi

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/http/docs"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/middleware"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"go.uber.org/zap"
)

type options struct {
	config      *Config
	server      server.Config
	log         *zap.Logger
	openAPI     []byte
	middlewares []middleware.Middleware
}

// Option configures New and NewBaseAPIModule.
type Option func(*options)

// WithAPIConfig provides a static Config to NewBaseAPIModule (useful for
// tests). When set, the configuration will not be loaded from viper.
func WithAPIConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithServerConfig sets the timeout, throttling and CORS settings of the
// chain built by New. Defaults apply to unset fields.
func WithServerConfig(cfg server.Config) Option {
	return func(o *options) {
		o.server = cfg
	}
}

// WithLogger sets the logger of the chain built by New.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithOpenAPI serves document (YAML or JSON) instead of the generated one.
func WithOpenAPI(document []byte) Option {
	return func(o *options) {
		o.openAPI = document
	}
}

// WithMiddlewares adds middlewares to the chain built by New.
func WithMiddlewares(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New builds a ready-to-serve engine: the standard middleware chain, the
// readiness gate, the operational routes and the api docs. Service routes
// are registered on the returned engine.
//
// Example:
//
//	start := time.Now()
//	engine, err := baseapi.New(readiness.After(start, 2*time.Second), baseapi.Config{})
func New(predicate readiness.Predicate, cfg Config, opts ...Option) (*gin.Engine, error) {
	o := newOptions(opts)
	if o.log == nil {
		o.log = logger.Get(context.Background())
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exempt := ExemptRoutes(cfg.DocsPrefix)
	g, err := gate.NewGate(predicate, exempt)
	if err != nil {
		return nil, err
	}

	mws := middleware.Chain(o.server, o.log, exempt)
	mws = append(mws, gateMiddleware(cfg, g))
	mws = append(mws, o.middlewares...)

	engine := middleware.NewEngine(mws...)
	registerRoutes(engine, newHandler(predicate, cfg, nil))
	if err := registerDocs(engine, cfg, o.openAPI); err != nil {
		return nil, err
	}
	return engine, nil
}

func gateMiddleware(cfg Config, g *gate.Gate) middleware.Middleware {
	if !cfg.gateEnabled() {
		return middleware.Middleware{Priority: middleware.PriorityReadinessGate}
	}
	return middleware.Middleware{Priority: middleware.PriorityReadinessGate, Handler: g.Handler()}
}

func registerDocs(engine *gin.Engine, cfg Config, document []byte) error {
	err := docs.Register(engine, docs.Config{
		Prefix:  cfg.DocsPrefix,
		Title:   cfg.Title,
		Version: cfg.Version,
		OpenAPI: document,
	})
	if err != nil {
		return fmt.Errorf("failed to register api docs: %w", err)
	}
	return nil
}
