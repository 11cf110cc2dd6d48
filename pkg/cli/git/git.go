// Package git wraps the git executable for cloning and updating repositories
// that hold deployable charts.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mediatechnologycenter/api-commons/pkg/cli"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"go.uber.org/zap"
)

const DefaultBasePath = "/tmp/gitRepos"

var repoNamePattern = regexp.MustCompile(`.*/([\w\-]*)(?:\.git)?`)

var ErrInvalidRepoURL = errors.New("invalid repository url")

// Client checks out repositories below a base directory, one directory per
// repository named after the last path segment of its url.
type Client struct {
	runner   cli.Runner
	basePath string
}

func NewClient(runner cli.Runner, basePath string) *Client {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Client{runner: runner, basePath: basePath}
}

func (c *Client) BasePath() string {
	return c.basePath
}

// RepoPath returns the local checkout directory of repoURL.
func (c *Client) RepoPath(repoURL string) (string, error) {
	m := repoNamePattern.FindStringSubmatch(repoURL)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, repoURL)
	}
	return filepath.Join(c.basePath, m[1]), nil
}

func (c *Client) Clone(ctx context.Context, repoURL, branch string) error {
	if err := os.MkdirAll(c.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository base dir: %w", err)
	}
	if _, err := c.run(ctx, c.basePath, "clone", "-b", branch, repoURL); err != nil {
		return fmt.Errorf("failed to clone %s on branch %s: %w", repoURL, branch, err)
	}
	return nil
}

// Pull discards local changes and fast-forwards the checked out branch.
func (c *Client) Pull(ctx context.Context, repoPath string) error {
	if _, err := c.run(ctx, repoPath, "reset", "--hard"); err != nil {
		return fmt.Errorf("failed to reset %s: %w", repoPath, err)
	}
	if _, err := c.run(ctx, repoPath, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("failed to pull %s: %w", repoPath, err)
	}
	return nil
}

// CloneOrPull pulls the repository when it is already checked out and clones
// it otherwise. It reports whether a pull happened.
func (c *Client) CloneOrPull(ctx context.Context, repoURL, branch string) (bool, error) {
	repoPath, err := c.RepoPath(repoURL)
	if err != nil {
		return false, err
	}

	if info, err := os.Stat(repoPath); err == nil && info.IsDir() {
		logger.Get(ctx).Debug("repository exists, pulling", zap.String("path", repoPath))
		return true, c.Pull(ctx, repoPath)
	}
	return false, c.Clone(ctx, repoURL, branch)
}

// CommitHash returns the short hash of HEAD.
func (c *Client) CommitHash(ctx context.Context, repoPath string) (string, error) {
	out, err := c.run(ctx, repoPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read commit hash of %s: %w", repoPath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitDate returns the committer date of HEAD.
func (c *Client) CommitDate(ctx context.Context, repoPath string) (time.Time, error) {
	out, err := c.run(ctx, repoPath, "show", "-s", "--format=%cI")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read commit date of %s: %w", repoPath, err)
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(string(out)))
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected commit date %q: %w", out, err)
	}
	return date, nil
}

func (c *Client) run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	return c.runner.Run(ctx, cli.Git, append([]string{"-C", repoPath}, args...), "")
}
