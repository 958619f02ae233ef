// Package reports turns Cloudflare analytics into self-contained HTML reports.
// Each report type is a Template registered in a Registry; the Generator
// validates inbound requests and runs the selected template.
package reports

import (
	"context"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
)

// Config selects the zone and window a template reports on.
type Config struct {
	ZoneID    string
	ZoneName  string
	TimeRange cloudflare.TimeRange
}

// ZoneLabel is the display name of the zone, falling back to its id.
func (c Config) ZoneLabel() string {
	if c.ZoneName != "" {
		return c.ZoneName
	}
	return c.ZoneID
}

// Template renders one report type. Generate performs exactly one call to
// fetch and returns the finished document.
type Template interface {
	ID() string
	Name() string
	Description() string
	Generate(ctx context.Context, cfg Config, fetch cloudflare.Fetcher) (string, error)
}

// Info describes a registered template for discovery endpoints.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Describe returns the discovery metadata of t.
func Describe(t Template) Info {
	return Info{ID: t.ID(), Name: t.Name(), Description: t.Description()}
}
