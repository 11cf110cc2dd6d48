package baseapi

import (
	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"go.uber.org/fx"
)

// predicateIn collects the readiness sources of the application. The api
// is ready when every tracked component is ready and, if the service
// provides one, its own readiness.Predicate reports true.
type predicateIn struct {
	fx.In

	Tracker   *readiness.Tracker
	Predicate readiness.Predicate `optional:"true"`
}

func (in predicateIn) combined() readiness.Predicate {
	if in.Predicate == nil {
		return in.Tracker.Predicate()
	}
	return readiness.All(in.Tracker.Predicate(), in.Predicate)
}

// NewBaseAPIModule registers the operational routes and the api docs on
// the engine of the gin module and puts the readiness gate into its chain.
// It provides the *gate.Gate for per-route requirements and the exempt
// routes that the throttling middlewares skip.
//
// Options:
//   - WithAPIConfig: provide a static Config (useful for tests)
//   - WithOpenAPI: serve a hand-written OpenAPI document
func NewBaseAPIModule(opts ...Option) fx.Option {
	o := newOptions(opts)

	return fx.Module("baseapi",
		configProvider(o),
		fx.Provide(
			provideExemptRoutes,
			provideGate,
			fx.Annotate(
				gateMiddleware,
				fx.ResultTags(`group:"gin_mw"`),
			),
		),
		fx.Invoke(func(engine *gin.Engine, cfg Config, in predicateIn) error {
			registerRoutes(engine, newHandler(in.combined(), cfg, in.Tracker))
			return registerDocs(engine, cfg, o.openAPI)
		}),
	)
}

func configProvider(o *options) fx.Option {
	if o.config == nil {
		return fx.Provide(newConfig)
	}
	cfg := *o.config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fx.Error(err)
	}
	return fx.Supply(cfg)
}

func provideExemptRoutes(cfg Config) gate.ExemptRoutes {
	return ExemptRoutes(cfg.DocsPrefix)
}

func provideGate(in predicateIn, exempt gate.ExemptRoutes) (*gate.Gate, error) {
	return gate.NewGate(in.combined(), exempt)
}
