package readiness

import (
	"go.uber.org/fx"
)

// NewReadinessModule provides the component Tracker shared by the server,
// model initializers and the readiness routes.
func NewReadinessModule() fx.Option {
	return fx.Provide(NewTracker)
}
