// Package main provides the apicommons CLI for running the demo service and
// probing the operational routes of running services.
//
// Usage:
//
//	apicommons serve --port 5000 --ready-after 10s
//	apicommons wait --url http://summarizer:5000 --timeout 2m
//	apicommons status --url http://summarizer:5000
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediatechnologycenter/api-commons/internal/demo"
	"github.com/mediatechnologycenter/api-commons/pkg/http/client"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "apicommons",
		Short:         "Run and check services built on api-commons",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newWaitCmd(), newStatusCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cfg := demo.Config{Version: version}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo api",
		Long: `Serve the demo api with the operational routes, the api docs and a
gated POST /api/echo route.

Example:
  apicommons serve --port 5000 --ready-after 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&cfg.Port, "port", "p", 0, "Port to listen on (defaults to server.port)")
	cmd.Flags().DurationVar(&cfg.ReadyAfter, "ready-after", 0, "Delay before the api reports ready")
	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "c", "", "Config file with logger, server and api keys")

	return cmd
}

func runServe(ctx context.Context, cfg demo.Config) error {
	app := fx.New(demo.Options(cfg))

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("stopped with exit code %d", sig.ExitCode)
	}
	return nil
}

type checkFlags struct {
	url     string
	timeout time.Duration
}

func (f *checkFlags) register(cmd *cobra.Command, timeout time.Duration) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Base url of the service (required)")
	cmd.Flags().DurationVarP(&f.timeout, "timeout", "t", timeout, "How long to wait")
	_ = cmd.MarkFlagRequired("url")
}

func newWaitCmd() *cobra.Command {
	var (
		flags    checkFlags
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a service reports ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.NewAPIClient(flags.url, client.WithWaitInterval(interval))
			if err := api.WaitForReadiness(cmd.Context(), flags.timeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is ready\n", flags.url)
			return nil
		},
	}

	flags.register(cmd, time.Minute)
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultWaitInterval, "Polling interval")

	return cmd
}

func newStatusCmd() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a service as json",
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.NewAPIClient(flags.url, client.WithTimeout(flags.timeout))
			resp, status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			if resp == nil {
				return fmt.Errorf("%s is not reachable", flags.url)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}

	flags.register(cmd, client.DefaultTimeout)

	return cmd
}
