package slack

import "go.uber.org/fx"

func NewSlackModule() fx.Option {
	return fx.Module("slack",
		fx.Provide(newConfig, NewClient),
	)
}
