package slack

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewSlackModule(t *testing.T) {
	v := viper.New()
	v.Set("slack.token", "xoxb-test")
	v.Set("slack.channel", "C0123456")

	var client *Client
	app := fxtest.New(t,
		fx.Supply(v, zap.NewNop()),
		NewSlackModule(),
		fx.Populate(&client),
	)
	app.RequireStart().RequireStop()

	assert.NotNil(t, client)
}

func TestNewSlackModule_MissingToken(t *testing.T) {
	v := viper.New()
	v.Set("slack.channel", "C0123456")

	app := fx.New(
		fx.NopLogger,
		fx.Supply(v, zap.NewNop()),
		NewSlackModule(),
		fx.Invoke(func(*Client) {}),
	)

	assert.ErrorContains(t, app.Err(), "slack token is required")
}
