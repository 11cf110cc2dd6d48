package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
	"github.com/mediatechnologycenter/api-commons/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNotStarted is returned by Wait and Err when Start was never called.
var ErrNotStarted = errors.New("model loader not started")

// InitFunc loads a model (weights, tokenizer, remote artifacts ...). It
// should return promptly once ctx is cancelled.
type InitFunc func(ctx context.Context) error

// Loader runs a model's InitFunc once on a background goroutine and exposes
// its progress as a readiness source.
type Loader struct {
	name string
	init InitFunc
	log  *zap.Logger

	ready readiness.Flag

	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
	err       error
}

func NewLoader(name string, init InitFunc, log *zap.Logger) *Loader {
	return &Loader{
		name:    name,
		init:    init,
		log:     log.With(zap.String("model", name)),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (l *Loader) Name() string {
	return l.name
}

// Start launches the InitFunc. Only the first call has an effect.
func (l *Loader) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		close(l.started)
		go l.run(ctx)
	})
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	start := time.Now()
	l.log.Info("initializing model")

	ctx, end := observability.WithSpan(ctx, "model.init", trace.WithAttributes(attribute.String("model", l.name)))
	err := l.safeInit(ctx)
	end(err)
	if err != nil {
		l.err = err
		l.log.Error("model initialization failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}

	l.ready.Set(true)
	l.log.Info("model is ready", zap.Duration("elapsed", time.Since(start)))
}

func (l *Loader) safeInit(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s: panic during init: %v", l.name, r)
		}
	}()
	return l.init(ctx)
}

// Stop cancels a running InitFunc and waits for it to return.
func (l *Loader) Stop() {
	select {
	case <-l.started:
	default:
		return
	}
	l.cancel()
	<-l.done
}

func (l *Loader) IsReady() bool {
	return l.ready.IsReady()
}

// Err reports why initialization failed. It is ErrNotStarted before
// Start, and nil while the InitFunc is running or after a successful init.
func (l *Loader) Err() error {
	select {
	case <-l.started:
	default:
		return ErrNotStarted
	}
	return l.failure()
}

func (l *Loader) failure() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Wait blocks until the InitFunc has returned and reports its error.
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.started:
	default:
		return ErrNotStarted
	}

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Predicate reports ready once the InitFunc succeeded. A failed init is
// surfaced as an error so callers can tell it apart from "still loading".
func (l *Loader) Predicate() readiness.Predicate {
	return func(context.Context) (bool, error) {
		if l.ready.IsReady() {
			return true, nil
		}
		return false, l.failure()
	}
}
