package helm

import (
	"github.com/mediatechnologycenter/api-commons/pkg/cli"
	"github.com/mediatechnologycenter/api-commons/pkg/cli/git"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// NewHelmModule provides a *Client backed by the local git and helm
// executables. Charts are checked out below helm.repo-base-path.
func NewHelmModule() fx.Option {
	return fx.Module("helm",
		fx.Provide(
			fx.Annotate(cli.NewExecRunner, fx.As(new(cli.Runner))),
			func(v *viper.Viper, runner cli.Runner) *git.Client {
				return git.NewClient(runner, v.GetString("helm.repo-base-path"))
			},
			NewClient,
		),
	)
}
