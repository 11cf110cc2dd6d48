package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"go.uber.org/zap"
)

type Executable string

const (
	Git     Executable = "git"
	Helm    Executable = "helm"
	Kubectl Executable = "kubectl"
)

// Runner runs an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, exe Executable, args []string, dir string) ([]byte, error)
}

// CommandError is returned when a command could not be started or exited
// with a non-zero status. Stderr holds the captured error output.
type CommandError struct {
	Executable Executable
	Args       []string
	ExitCode   int
	Stderr     string
	Err        error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Executable, strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes. The process is killed when
// ctx is cancelled.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (ExecRunner) Run(ctx context.Context, exe Executable, args []string, dir string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, string(exe), args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Get(ctx).Debug("running command",
		zap.String("executable", string(exe)),
		zap.Strings("args", args),
		zap.String("dir", dir))

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{Executable: exe, Args: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), cmdErr
	}
	return stdout.Bytes(), nil
}

// IsCommandError reports whether err is a failed command whose stderr
// contains substr.
func IsCommandError(err error, substr string) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, substr)
}
