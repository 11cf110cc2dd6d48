package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mediatechnologycenter/api-commons/pkg/http/problems"
	"go.uber.org/fx"
)

// problemMiddleware converts the first error attached to the gin context
// into an RFC 7807 response, unless something was already written.
func problemMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		problem := problemFor(c, c.Errors[0])
		c.JSON(problem.Status, problem)
	}
}

// problemFor builds the problem rendered for err.
func problemFor(c *gin.Context, err *gin.Error) problems.Problem {
	var problem problems.Problem

	switch meta := err.Meta.(type) {
	case *problems.Problem:
		problem = *meta
	case problems.Problem:
		problem = meta
	default:
		problem = problems.FromError(c.Request.Context(), err.Err, c.Request.URL.Path)
		if problem.Status == http.StatusInternalServerError {
			if status := c.Writer.Status(); status >= http.StatusBadRequest {
				problem.Status = status
				problem.Title = http.StatusText(status)
			}
		}
		if fields, ok := meta.(map[string]string); ok {
			for field, msg := range fields {
				problem.Errors = append(problem.Errors, problems.FieldError{Field: field, Message: msg})
			}
		}
	}

	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if problem.TraceID == "" {
		problem.TraceID = problems.TraceID(c.Request.Context())
	}
	return problem
}

// ProblemModule provides problem details middleware.
func ProblemModule(priority int) fx.Option {
	return provide(priority, func(_ chainIn, priority int) Middleware {
		return Middleware{Priority: priority, Handler: problemMiddleware()}
	})
}
