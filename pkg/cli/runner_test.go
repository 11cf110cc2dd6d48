package cli

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shell Executable = "sh"

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(string(shell)); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Stdout(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	out, err := NewExecRunner().Run(context.Background(), shell, []string{"-c", "pwd"}, dir)

	require.NoError(t, err)
	assert.Contains(t, string(out), dir)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := NewExecRunner().Run(context.Background(), shell, []string{"-c", "echo 'Error: release: not found' >&2; exit 3"}, "")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "Error: release: not found")
	assert.True(t, IsCommandError(err, "release: not found"))
	assert.False(t, IsCommandError(err, "timeout"))
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Executable("api-commons-missing-binary"), nil, "")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, -1, cmdErr.ExitCode)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestExecRunner_ContextCancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner().Run(ctx, shell, []string{"-c", "sleep 5"}, "")

	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}
