package artifact

import "go.uber.org/fx"

// NewArtifactModule provides a *Downloader configured from the artifact key.
func NewArtifactModule() fx.Option {
	return fx.Module("artifact",
		fx.Provide(newConfig, NewDownloader),
	)
}
