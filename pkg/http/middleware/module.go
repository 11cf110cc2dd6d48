package middleware

import (
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
	"github.com/mediatechnologycenter/api-commons/pkg/http/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// chainIn carries what the configurable middlewares are built from.
// Exempt is provided by the base api module; without it nothing is skipped.
type chainIn struct {
	fx.In

	Config server.Config
	Log    *zap.Logger
	Exempt gate.ExemptRoutes `optional:"true"`
}

// Middleware execution order (by priority, lower = earlier, i.e. outer):
//
//	10  - Recovery       - catches panics
//	20  - Logger         - logs requests, attaches the request logger
//	25  - Tracing        - server span per request, provided by observability
//	26  - TraceFields    - trace ids on the request logger, provided by observability
//	27  - Metrics        - request metrics, provided by observability
//	30  - ErrorLogger    - logs errors from inner stages
//	40  - Problem        - converts errors to RFC 7807
//	50  - CORS           - answers preflight requests
//	60  - Timeout        - puts a deadline on the request
//	70  - RateLimit      - limits requests/second
//	80  - HTTPBulkhead   - limits concurrent requests
//	90  - CircuitBreaker - sheds load after repeated 5xx
//	100 - readiness gate - provided by the base api module
const (
	PriorityRecovery       = 10
	PriorityLogger         = 20
	PriorityTracing        = 25
	PriorityTraceFields    = 26
	PriorityMetrics        = 27
	PriorityErrorLogger    = 30
	PriorityProblem        = 40
	PriorityCORS           = 50
	PriorityTimeout        = 60
	PriorityRateLimit      = 70
	PriorityBulkhead       = 80
	PriorityCircuitBreaker = 90
	PriorityReadinessGate  = 100
)

func provide(priority int, build func(chainIn, int) Middleware) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(in chainIn) Middleware {
				return build(in, priority)
			},
			fx.ResultTags(`group:"gin_mw"`),
		),
	)
}

// Chain returns the standard middleware chain for use without fx, e.g.
// when building an engine with NewEngine in tests or small binaries.
func Chain(cfg server.Config, log *zap.Logger, exempt gate.ExemptRoutes) []Middleware {
	cfg.SetDefaults()
	in := chainIn{Config: cfg, Log: log, Exempt: exempt}

	return []Middleware{
		{Priority: PriorityRecovery, Handler: recoveryMiddleware()},
		{Priority: PriorityLogger, Handler: loggerMiddleware(log, exempt)},
		{Priority: PriorityErrorLogger, Handler: errorLoggerMiddleware()},
		{Priority: PriorityProblem, Handler: problemMiddleware()},
		corsMiddleware(in, PriorityCORS),
		timeoutMiddleware(in, PriorityTimeout),
		rateLimitMiddleware(in, PriorityRateLimit),
		bulkheadMiddleware(in, PriorityBulkhead),
		circuitBreakerMiddleware(in, PriorityCircuitBreaker),
	}
}

// NewGinModule provides the gin engine, the http.Handler served by the
// server module and the standard middleware chain.
func NewGinModule() fx.Option {
	return fx.Options(
		RecoveryModule(PriorityRecovery),
		LoggerModule(PriorityLogger),
		ErrorLoggerModule(PriorityErrorLogger),
		ProblemModule(PriorityProblem),
		CORSModule(PriorityCORS),
		TimeoutModule(PriorityTimeout),
		RateLimitModule(PriorityRateLimit),
		HTTPBulkheadModule(PriorityBulkhead),
		CircuitBreakerModule(PriorityCircuitBreaker),
		fx.Provide(provideGinAndHandler),
	)
}
