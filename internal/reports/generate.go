package reports

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/render"
)

var zoneIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)

// GenerateRequest is an inbound report request.
type GenerateRequest struct {
	APIToken   string               `json:"apiToken"`
	ZoneID     string               `json:"zoneId"`
	ZoneName   string               `json:"zoneName,omitempty"`
	TemplateID string               `json:"templateId"`
	TimeRange  cloudflare.TimeRange `json:"timeRange"`

	// RequestID correlates logs and history. Generated when empty.
	RequestID string `json:"-"`
}

// ValidationError lists every constraint a request violated.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// UnknownTemplateError names a template id that is not registered.
type UnknownTemplateError struct {
	ID string
}

func (e *UnknownTemplateError) Error() string {
	return "Unknown template: " + e.ID
}

// Validate checks the request shape. It never touches the network.
func (r GenerateRequest) Validate() error {
	var problems []string
	if r.APIToken == "" {
		problems = append(problems, "apiToken is required")
	}
	if !zoneIDPattern.MatchString(r.ZoneID) {
		problems = append(problems, "zoneId must be a 32-character hexadecimal string")
	}
	if r.TemplateID == "" {
		problems = append(problems, "templateId is required")
	}

	start, startErr := render.ParseTimestamp(r.TimeRange.Start)
	if startErr != nil {
		problems = append(problems, "Invalid ISO 8601 datetime")
	}
	end, endErr := render.ParseTimestamp(r.TimeRange.End)
	if endErr != nil {
		problems = append(problems, "Invalid ISO 8601 datetime")
	}
	if startErr == nil && endErr == nil && !start.Before(end) {
		problems = append(problems, "timeRange.start must be before timeRange.end")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Result is the outcome of one generation. Exactly one of HTML and Error is
// set; StatusCode is 200, 400 for caller errors or 500 for everything else.
type Result struct {
	HTML       string
	Error      string
	StatusCode int
	RequestID  string
	Duration   time.Duration
}

// OK reports whether the generation produced a document.
func (r Result) OK() bool {
	return r.Error == "" && r.StatusCode == http.StatusOK
}

// FetcherFactory binds a fetch capability to a credential.
type FetcherFactory func(apiToken string) cloudflare.Fetcher

// ClientFactory returns a FetcherFactory backed by cloudflare.Client.
func ClientFactory(opts ...cloudflare.Option) FetcherFactory {
	return func(apiToken string) cloudflare.Fetcher {
		return cloudflare.NewClient(apiToken, opts...).Fetcher()
	}
}

// Generator validates requests and runs the selected template.
type Generator struct {
	registry   *Registry
	newFetcher FetcherFactory
	now        func() time.Time
}

// NewGenerator creates a generator. A nil registry means DefaultRegistry and
// a nil factory means ClientFactory with default options.
func NewGenerator(registry *Registry, newFetcher FetcherFactory) *Generator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if newFetcher == nil {
		newFetcher = ClientFactory()
	}
	return &Generator{
		registry:   registry,
		newFetcher: newFetcher,
		now:        time.Now,
	}
}

// Registry returns the templates this generator can run.
func (g *Generator) Registry() *Registry {
	return g.registry
}

// Generate validates req, resolves its template and renders the report.
// Failure messages never contain req.APIToken.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) Result {
	started := g.now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	res := g.generate(ctx, req)
	res.RequestID = req.RequestID
	res.Duration = g.now().Sub(started)

	if res.OK() {
		slog.Info("report generated",
			"template_id", req.TemplateID,
			"zone_id", req.ZoneID,
			"request_id", req.RequestID,
			"bytes", len(res.HTML),
			"duration", res.Duration)
	}
	return res
}

func (g *Generator) generate(ctx context.Context, req GenerateRequest) Result {
	// Validation problems are fixed strings and never echo the token.
	if err := req.Validate(); err != nil {
		return failure(err, http.StatusBadRequest, "")
	}

	tmpl, ok := g.registry.Lookup(req.TemplateID)
	if !ok {
		id := Redact(req.TemplateID, req.APIToken)
		return failure(&UnknownTemplateError{ID: id}, http.StatusBadRequest, "")
	}

	cfg := Config{
		ZoneID:    req.ZoneID,
		ZoneName:  req.ZoneName,
		TimeRange: req.TimeRange,
	}
	html, err := tmpl.Generate(ctx, cfg, g.newFetcher(req.APIToken))
	if err != nil {
		slog.Error("report generation failed",
			"template_id", req.TemplateID,
			"zone_id", req.ZoneID,
			"request_id", req.RequestID)
		return failure(err, http.StatusInternalServerError, req.APIToken)
	}
	return Result{HTML: html, StatusCode: http.StatusOK}
}

// failure builds a failed Result, redacting apiToken from the message when
// it is non-empty.
func failure(err error, status int, apiToken string) Result {
	msg := err.Error()
	if msg == "" {
		msg = "Report generation failed"
	}
	return Result{Error: Redact(msg, apiToken), StatusCode: status}
}

// Redact removes every occurrence of secret from msg.
func Redact(msg, secret string) string {
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "[REDACTED]")
}
