// Package clitest provides a recording cli.Runner for tests of the cli wrappers.
package clitest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mediatechnologycenter/api-commons/pkg/cli"
)

// Call is one command recorded by a FakeRunner.
type Call struct {
	Executable cli.Executable
	Args       []string
	Dir        string
}

func (c Call) String() string {
	return strings.Join(append([]string{string(c.Executable)}, c.Args...), " ")
}

// FakeRunner records commands instead of running them. Respond returns the
// stdout and error for a call; a nil Respond succeeds with empty output.
type FakeRunner struct {
	Respond func(Call) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

var _ cli.Runner = (*FakeRunner)(nil)

func (f *FakeRunner) Run(_ context.Context, exe cli.Executable, args []string, dir string) ([]byte, error) {
	call := Call{Executable: exe, Args: slices.Clone(args), Dir: dir}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.Respond == nil {
		return nil, nil
	}
	return f.Respond(call)
}

func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}
