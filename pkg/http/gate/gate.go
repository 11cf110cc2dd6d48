package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/core/readiness"
)

// NotReadyDetail is the body of every not-ready rejection, whether it comes
// from the global gate or from a per-route requirement.
const NotReadyDetail = "The api is currently not ready to accept requests. It may still be initializing"

// NotReadyError is returned by Assert while the service is not ready.
type NotReadyError struct {
	Status int
	Detail string
}

func (e *NotReadyError) Error() string {
	return e.Detail
}

func (e *NotReadyError) StatusCode() int {
	return e.Status
}

func newNotReadyError() *NotReadyError {
	return &NotReadyError{Status: http.StatusServiceUnavailable, Detail: NotReadyDetail}
}

// IsNotReady reports whether err is a not-ready rejection.
func IsNotReady(err error) bool {
	var nr *NotReadyError
	return errors.As(err, &nr)
}

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Forward bool
	Status  int
	Detail  string
}

var forward = Decision{Forward: true}

func reject() Decision {
	return Decision{Status: http.StatusServiceUnavailable, Detail: NotReadyDetail}
}

// Gate rejects requests to non-exempt routes while the readiness predicate
// reports false. The predicate is evaluated once per request and never
// cached.
type Gate struct {
	predicate readiness.Predicate
	exempt    ExemptRoutes
}

func NewGate(predicate readiness.Predicate, exempt ExemptRoutes) (*Gate, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: predicate is nil", ErrInvalidConfiguration)
	}
	if err := exempt.validate(); err != nil {
		return nil, err
	}
	return &Gate{
		predicate: predicate,
		exempt:    append(ExemptRoutes(nil), exempt...),
	}, nil
}

func (g *Gate) Exempt() ExemptRoutes {
	return append(ExemptRoutes(nil), g.exempt...)
}

// Decide evaluates the gate for path. Predicate errors, including context
// cancellation, are returned unchanged.
func (g *Gate) Decide(ctx context.Context, path string) (Decision, error) {
	if g.exempt.Matches(path) {
		return forward, nil
	}

	ready, err := readiness.Evaluate(ctx, g.predicate)
	if err != nil {
		return Decision{}, err
	}
	if !ready {
		return reject(), nil
	}
	return forward, nil
}

// Handler is the global gate middleware.
//
// A rejection is written as a JSON string with status 503. A predicate
// error is attached to the context and the chain is aborted so the problem
// middleware renders it. When the request context is already done nothing
// is written.
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		decision, err := g.Decide(ctx, c.Request.URL.Path)
		if err != nil {
			if ctx.Err() != nil {
				c.Abort()
				return
			}
			_ = c.Error(fmt.Errorf("readiness check failed: %w", err))
			c.Abort()
			return
		}

		if !decision.Forward {
			c.AbortWithStatusJSON(decision.Status, decision.Detail)
			return
		}
		c.Next()
	}
}

// Assert checks readiness for a single handler. It returns a *NotReadyError
// when the predicate reports false and the predicate's own error otherwise.
func (g *Gate) Assert(ctx context.Context) error {
	ready, err := readiness.Evaluate(ctx, g.predicate)
	if err != nil {
		return err
	}
	if !ready {
		return newNotReadyError()
	}
	return nil
}

// Require is Assert as per-route middleware, for services that gate only
// some handlers. Exempt routes are not consulted.
func (g *Gate) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		err := g.Assert(ctx)
		switch {
		case err == nil:
			c.Next()
		case IsNotReady(err):
			nr := newNotReadyError()
			c.AbortWithStatusJSON(nr.Status, nr.Detail)
		case ctx.Err() != nil:
			c.Abort()
		default:
			_ = c.Error(fmt.Errorf("readiness check failed: %w", err))
			c.Abort()
		}
	}
}
