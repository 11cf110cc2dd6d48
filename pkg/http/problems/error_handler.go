package problems

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// StatusCoder is implemented by errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// FromError builds the Problem rendered for err. Problems pass through as
// they are, errors implementing StatusCoder keep their status and anything
// else becomes a 500.
func FromError(ctx context.Context, err error, instance string) Problem {
	var existing *Problem
	if errors.As(err, &existing) {
		problem := *existing
		if problem.Status == 0 {
			problem.Status = http.StatusInternalServerError
			problem.Title = http.StatusText(problem.Status)
		}
		if problem.Instance == "" {
			problem.Instance = instance
		}
		withTraceID(ctx, &problem)
		return problem
	}

	code := http.StatusInternalServerError
	var coder StatusCoder
	if errors.As(err, &coder) {
		code = coder.StatusCode()
	}

	problem := Problem{
		Type:     "about:blank",
		Title:    http.StatusText(code),
		Status:   code,
		Detail:   err.Error(),
		Instance: instance,
	}
	withTraceID(ctx, &problem)
	return problem
}

func withTraceID(ctx context.Context, problem *Problem) {
	if problem.TraceID == "" {
		problem.TraceID = TraceID(ctx)
	}
}

// TraceID returns the OpenTelemetry trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
