package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/config"
	"github.com/gladston3/cf-reporting/internal/reports"
)

type generateOptions struct {
	zoneID     string
	zoneName   string
	templateID string
	since      string
	until      string
	last       string
	token      string
	output     string
}

func newGenerateCmd(cfg *config.Config) *cobra.Command {
	var opts generateOptions

	c := &cobra.Command{
		Use:   "generate",
		Short: "Generate one report and write the HTML",
		Long: `Generate one report without starting the service.

The time range is either --since/--until (RFC 3339) or a lookback ending at the
current hour (--last, e.g. 24h or 7d). The document goes to stdout unless -o
names a file.

Examples:
  cfreport generate --zone 023e105f4ecef8ad9ca31a8372d0c353 --zone-name example.com -o overview.html
  cfreport generate --zone 023e105f4ecef8ad9ca31a8372d0c353 --since 2026-02-13T00:00:00Z --until 2026-02-20T00:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, *cfg, opts, time.Now())
		},
	}

	f := c.Flags()
	f.StringVar(&opts.zoneID, "zone", "", "Cloudflare zone id (32 hex characters)")
	f.StringVar(&opts.zoneName, "zone-name", "", "Display name of the zone")
	f.StringVarP(&opts.templateID, "template", "t", reports.TrafficOverviewID, "Report template id")
	f.StringVar(&opts.since, "since", "", "Range start (RFC 3339)")
	f.StringVar(&opts.until, "until", "", "Range end (RFC 3339)")
	f.StringVar(&opts.last, "last", "7d", "Lookback when --since/--until are not given")
	f.StringVar(&opts.token, "token", "", "API token (default: $CLOUDFLARE_API_TOKEN or $CF_API_TOKEN)")
	f.StringVarP(&opts.output, "output", "o", "-", "Output file, - for stdout")
	_ = c.MarkFlagRequired("zone")

	return c
}

func runGenerate(cmd *cobra.Command, cfg config.Config, opts generateOptions, now time.Time) error {
	token := opts.token
	if token == "" {
		token = cloudflare.ResolveAPIToken()
	}
	if token == "" {
		return errors.New("no API token: pass --token or set CLOUDFLARE_API_TOKEN")
	}

	tr, err := opts.timeRange(now)
	if err != nil {
		return err
	}

	gen := reports.NewGenerator(newRegistry(cfg), newFetcherFactory(cfg, nil))
	res := gen.Generate(cmd.Context(), reports.GenerateRequest{
		APIToken:   token,
		ZoneID:     opts.zoneID,
		ZoneName:   opts.zoneName,
		TemplateID: opts.templateID,
		TimeRange:  tr,
	})
	if !res.OK() {
		return fmt.Errorf("generate %s (status %d): %s", opts.templateID, res.StatusCode, res.Error)
	}

	if opts.output == "" || opts.output == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), res.HTML)
		return err
	}
	if err := os.WriteFile(opts.output, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s) in %s\n",
		opts.output, humanize.Bytes(uint64(len(res.HTML))), res.Duration.Round(time.Millisecond))
	return nil
}

// timeRange resolves the flags into an explicit range. --since and --until
// go together; otherwise --last counts back from the start of the current hour.
func (o generateOptions) timeRange(now time.Time) (cloudflare.TimeRange, error) {
	if o.since != "" || o.until != "" {
		if o.since == "" || o.until == "" {
			return cloudflare.TimeRange{}, errors.New("--since and --until must be given together")
		}
		return cloudflare.TimeRange{Start: o.since, End: o.until}, nil
	}

	lookback, err := parseLookback(o.last)
	if err != nil {
		return cloudflare.TimeRange{}, err
	}
	end := now.UTC().Truncate(time.Hour)
	return cloudflare.TimeRange{
		Start: end.Add(-lookback).Format(time.RFC3339),
		End:   end.Format(time.RFC3339),
	}, nil
}

// parseLookback accepts Go durations plus whole days ("7d").
func parseLookback(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("lookback must be positive, got %q", s)
	}
	return d, nil
}
