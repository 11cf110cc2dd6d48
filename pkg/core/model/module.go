package model

import (
	"context"
	"errors"

	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Initializer is implemented by models that load themselves on startup.
type Initializer interface {
	Init(ctx context.Context) error
}

type options struct {
	shutdownOnError bool
}

// Option configures a registered model.
type Option func(*options)

// WithShutdown stops the application when the model fails to initialize.
func WithShutdown() Option {
	return func(o *options) {
		o.shutdownOnError = true
	}
}

// Register returns a constructor that wires T's Init into the application
// lifecycle. The loader starts with the application, registers a
// "model:<name>" component on the readiness tracker and is stopped on
// shutdown.
//
// Example:
//
//	fx.Provide(newSummarizer, model.Register[*summarizer]("summarizer", model.WithShutdown()))
func Register[T Initializer](name string, opts ...Option) any {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return fx.Annotate(
		func(lc fx.Lifecycle, log *zap.Logger, shutdowner fx.Shutdowner, tracker *readiness.Tracker, dep T) *Loader {
			loader := NewLoader(name, dep.Init, log)
			markReady := tracker.AddComponent("model:" + name)

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					loader.Start(context.Background())
					go watch(loader, markReady, o, shutdowner, log)
					return nil
				},
				OnStop: func(context.Context) error {
					loader.Stop()
					return nil
				},
			})
			return loader
		},
		fx.ResultTags(`group:"models"`),
	)
}

func watch(loader *Loader, markReady func(), o options, shutdowner fx.Shutdowner, log *zap.Logger) {
	err := loader.Wait(context.Background())
	if err == nil {
		markReady()
		return
	}
	if !o.shutdownOnError || errors.Is(err, context.Canceled) {
		return
	}
	log.Error("model failed to initialize, initiating shutdown", zap.String("model", loader.Name()), zap.Error(err))
	if shutdownErr := shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
		log.Error("failed to initiate shutdown", zap.Error(shutdownErr))
	}
}

// NewModelModule forces construction of every loader provided through
// Register so their lifecycle hooks are installed.
func NewModelModule() fx.Option {
	return fx.Invoke(fx.Annotate(
		func(loaders []*Loader, log *zap.Logger) {
			log.Debug("registered models", zap.Int("count", len(loaders)))
		},
		fx.ParamTags(`group:"models"`),
	))
}
