package gate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration marks gate construction errors.
var ErrInvalidConfiguration = errors.New("invalid readiness gate configuration")

// Route is a path that bypasses the gate. By default it matches every path
// that starts with Path, so nested docs assets stay reachable. Exact routes
// match only the path itself.
type Route struct {
	Path  string
	Exact bool
}

func Prefix(path string) Route {
	return Route{Path: path}
}

func Exact(path string) Route {
	return Route{Path: path, Exact: true}
}

func (r Route) Matches(path string) bool {
	if r.Exact {
		return path == r.Path
	}
	return strings.HasPrefix(path, r.Path)
}

// ExemptRoutes is the ordered set of routes that skip the readiness check.
type ExemptRoutes []Route

// Matches reports whether path is exempt.
func (e ExemptRoutes) Matches(path string) bool {
	for _, r := range e {
		if r.Matches(path) {
			return true
		}
	}
	return false
}

func (e ExemptRoutes) validate() error {
	for i, r := range e {
		if r.Path == "" {
			return fmt.Errorf("%w: exempt route %d is empty", ErrInvalidConfiguration, i)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("%w: exempt route %q must start with /", ErrInvalidConfiguration, r.Path)
		}
	}
	return nil
}
