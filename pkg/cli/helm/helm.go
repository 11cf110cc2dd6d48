// Package helm installs, upgrades and inspects helm releases of charts that
// live in git repositories.
package helm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mediatechnologycenter/api-commons/pkg/cli"
	"github.com/mediatechnologycenter/api-commons/pkg/cli/git"
	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultNamespace = "default"

var (
	ErrChartNotFound = errors.New("chart directory not found, check the chart path")
	// ErrUnknownDeploymentStatus is returned when the release values set
	// neither deployProject: true nor deployProject: false.
	ErrUnknownDeploymentStatus = errors.New("expected deployProject to be either true or false")
)

type mode int

const (
	modeInstall mode = iota
	modeUpgrade
	modeInstallOrUpgrade
)

func (m mode) String() string {
	switch m {
	case modeInstall:
		return "install"
	case modeUpgrade:
		return "upgrade"
	default:
		return "install or upgrade"
	}
}

// Release describes a chart checked into RepoURL at ChartPath, deployed as
// ReleaseName.
type Release struct {
	RepoURL     string
	Branch      string
	ReleaseName string
	ChartPath   string
	// Namespace defaults to "default".
	Namespace string
	// Values are passed as --set name=value, sorted by name.
	Values map[string]string
}

type Client struct {
	runner cli.Runner
	git    *git.Client
}

func NewClient(runner cli.Runner, gitClient *git.Client) *Client {
	return &Client{runner: runner, git: gitClient}
}

func (c *Client) Install(ctx context.Context, r Release) error {
	return c.deploy(ctx, modeInstall, r)
}

func (c *Client) Upgrade(ctx context.Context, r Release) error {
	return c.deploy(ctx, modeUpgrade, r)
}

func (c *Client) InstallOrUpgrade(ctx context.Context, r Release) error {
	return c.deploy(ctx, modeInstallOrUpgrade, r)
}

func (c *Client) deploy(ctx context.Context, m mode, r Release) error {
	repoPath, err := c.git.RepoPath(r.RepoURL)
	if err != nil {
		return err
	}
	chartPath := filepath.Join(repoPath, r.ChartPath)

	if _, err := c.git.CloneOrPull(ctx, r.RepoURL, r.Branch); err != nil {
		return err
	}
	if info, err := os.Stat(chartPath); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrChartNotFound, chartPath)
	}

	args := []string{"install"}
	switch m {
	case modeUpgrade:
		args = []string{"upgrade"}
	case modeInstallOrUpgrade:
		args = []string{"upgrade", "--install"}
	}
	args = append(args, r.ReleaseName, chartPath, "--namespace", namespaceOrDefault(r.Namespace))
	args = append(args, setFlags(r.Values)...)

	logger.Get(ctx).Info("deploying helm release",
		zap.String("release", r.ReleaseName),
		zap.Stringer("mode", m),
		zap.String("chart", chartPath))

	if _, err := c.runner.Run(ctx, cli.Helm, args, ""); err != nil {
		return fmt.Errorf("failed to %s release %s from %s on branch %s: %w", m, r.ReleaseName, r.RepoURL, r.Branch, err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, releaseName, namespace string) error {
	args := []string{"uninstall", releaseName, "--namespace", namespaceOrDefault(namespace)}
	if _, err := c.runner.Run(ctx, cli.Helm, args, ""); err != nil {
		return fmt.Errorf("failed to remove release %s: %w", releaseName, err)
	}
	return nil
}

// List returns the release names in namespace, or in every namespace when
// namespace is empty.
func (c *Client) List(ctx context.Context, namespace string) ([]string, error) {
	args := []string{"list", "--short", "--output", "json"}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	} else {
		args = append(args, "--all-namespaces")
	}

	out, err := c.runner.Run(ctx, cli.Helm, args, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}

	var releases []string
	if err := json.Unmarshal(out, &releases); err != nil {
		return nil, fmt.Errorf("failed to parse helm list output %q: %w", out, err)
	}
	return releases, nil
}

// DeploymentStatus reads the deployProject value of a release. A release
// that is not installed is reported as not deployed.
func (c *Client) DeploymentStatus(ctx context.Context, releaseName, namespace string) (bool, error) {
	args := []string{"get", "values", "--all", releaseName, "--namespace", namespaceOrDefault(namespace)}

	out, err := c.runner.Run(ctx, cli.Helm, args, "")
	if err != nil {
		if cli.IsCommandError(err, "Error: release: not found") {
			logger.Get(ctx).Debug("release not installed", zap.String("release", releaseName))
			return false, nil
		}
		return false, fmt.Errorf("failed to get values of release %s: %w", releaseName, err)
	}

	values := string(out)
	switch {
	case strings.Contains(values, "deployProject: true"):
		return true, nil
	case strings.Contains(values, "deployProject: false"):
		return false, nil
	}
	return false, fmt.Errorf("release %s: %w", releaseName, ErrUnknownDeploymentStatus)
}

// BuildDependencies runs helm dependency update inside chartPath.
func (c *Client) BuildDependencies(ctx context.Context, chartPath string) error {
	if _, err := c.runner.Run(ctx, cli.Helm, []string{"dependency", "update"}, chartPath); err != nil {
		return fmt.Errorf("failed to build chart dependencies of %s: %w", chartPath, err)
	}
	return nil
}

func namespaceOrDefault(namespace string) string {
	return lo.Ternary(namespace == "", DefaultNamespace, namespace)
}

func setFlags(values map[string]string) []string {
	names := lo.Keys(values)
	slices.Sort(names)
	return lo.FlatMap(names, func(name string, _ int) []string {
		return []string{"--set", name + "=" + values[name]}
	})
}
