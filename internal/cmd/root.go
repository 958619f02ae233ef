// Package cmd contains the cfreport CLI commands.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/config"
	"github.com/gladston3/cf-reporting/internal/logging"
	"github.com/gladston3/cf-reporting/internal/metrics"
	"github.com/gladston3/cf-reporting/internal/reports"
	"github.com/gladston3/cf-reporting/internal/version"
)

// NewRootCmd builds the command tree. Configuration is read from the
// environment before any subcommand runs.
func NewRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:   "cfreport",
		Short: "Generate Cloudflare analytics reports",
		Long: `cfreport turns Cloudflare GraphQL Analytics data into self-contained HTML reports.

It runs either as an HTTP service that generates reports on request and keeps a
history of generations, or as a one-shot command that writes a report to a file.

Configuration is read from the environment (LISTEN_ADDR, DB_PATH, LOG_LEVEL, ...).
The API token is taken from --token, CLOUDFLARE_API_TOKEN or CF_API_TOKEN.

Examples:
  cfreport serve
  cfreport templates
  cfreport generate --zone 023e105f4ecef8ad9ca31a8372d0c353 --last 7d -o report.html`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			*cfg = config.Load()
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
		},
	}

	root.AddCommand(newServeCmd(cfg), newGenerateCmd(cfg), newTemplatesCmd(cfg))
	return root
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM
// cancel the command context.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRegistry returns the built-in templates configured from cfg.
func newRegistry(cfg config.Config) *reports.Registry {
	overview := reports.NewTrafficOverview()
	overview.ChartJSURL = cfg.ChartJSURL
	return reports.NewRegistry(overview)
}

// newFetcherFactory binds tokens to Cloudflare clients for the configured
// endpoint. A non-nil m times and counts every upstream call.
func newFetcherFactory(cfg config.Config, m *metrics.Metrics) reports.FetcherFactory {
	hc := &http.Client{Timeout: cfg.UpstreamTimeout}
	base := reports.ClientFactory(
		cloudflare.WithEndpoint(cfg.GraphQLEndpoint),
		cloudflare.WithHTTPClient(hc),
	)
	if m == nil {
		return base
	}
	return func(apiToken string) cloudflare.Fetcher {
		return m.InstrumentFetcher(base(apiToken))
	}
}
