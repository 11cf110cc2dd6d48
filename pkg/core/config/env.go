package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// ErrMissingEnv is returned when a required variable is unset or empty.
var ErrMissingEnv = errors.New("environment variable is not set")

// EnvValue lists the types Env and EnvOr can convert to.
type EnvValue interface {
	string | bool | int | int64 | float64 | time.Duration | []string
}

// ParseEnv fills a struct tagged with `env:"..."` from the environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Env reads a required variable and converts it to T.
func Env[T EnvValue](name string) (T, error) {
	var zero T
	raw, ok := lookup(name)
	if !ok {
		return zero, fmt.Errorf("%s: %w", name, ErrMissingEnv)
	}
	return convert[T](name, raw)
}

// EnvOr reads a variable and converts it to T, returning def when the
// variable is unset or empty. A set but malformed value is still an error.
func EnvOr[T EnvValue](name string, def T) (T, error) {
	raw, ok := lookup(name)
	if !ok {
		return def, nil
	}
	return convert[T](name, raw)
}

func lookup(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return raw, true
}

func convert[T EnvValue](name, raw string) (T, error) {
	var (
		out any
		err error
		zero T
	)

	switch any(zero).(type) {
	case string:
		out = raw
	case bool:
		out, err = cast.ToBoolE(strings.TrimSpace(raw))
	case int:
		out, err = cast.ToIntE(strings.TrimSpace(raw))
	case int64:
		out, err = cast.ToInt64E(strings.TrimSpace(raw))
	case float64:
		out, err = cast.ToFloat64E(strings.TrimSpace(raw))
	case time.Duration:
		out, err = cast.ToDurationE(strings.TrimSpace(raw))
	case []string:
		out = splitList(raw)
	}
	if err != nil {
		return zero, fmt.Errorf("%s: invalid value %q: %w", name, raw, err)
	}
	return out.(T), nil
}

// splitList splits a comma separated value, trimming items and dropping
// empty ones.
func splitList(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
