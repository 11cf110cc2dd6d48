package baseapi

import (
	"github.com/mediatechnologycenter/api-commons/pkg/http/docs"
	"github.com/mediatechnologycenter/api-commons/pkg/http/gate"
)

// Operational routes served by every api.
const (
	RouteIndex     = "/api"
	RouteLiveness  = "/api/liveness"
	RouteReadiness = "/api/readiness"
	RouteStatus    = "/api/status"
	RouteDocs      = "/api/docs"
	RouteOpenAPI   = "/api/openapi.json"
	RouteRedoc     = "/api/redoc"
)

// Standard tags reported by /api/status so callers can tell what kind of
// service answered.
const (
	TagDemo      = "demo"
	TagDashboard = "dashboard"
	TagService   = "service"
)

// ExemptRoutes returns the routes that bypass the readiness gate: the
// operational routes and the docs under docsPrefix. The index is matched
// exactly; as a prefix it would exempt every route under /api.
func ExemptRoutes(docsPrefix string) gate.ExemptRoutes {
	docsRoute, openapiRoute, redocRoute := docs.Routes(docsPrefix)
	return gate.ExemptRoutes{
		gate.Exact(RouteIndex),
		gate.Prefix(RouteLiveness),
		gate.Prefix(RouteReadiness),
		gate.Prefix(RouteStatus),
		gate.Prefix(docsRoute),
		gate.Prefix(openapiRoute),
		gate.Prefix(redocRoute),
	}
}
