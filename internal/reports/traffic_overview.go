package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/render"
)

// DefaultChartJSURL is the one external script a rendered report loads.
const DefaultChartJSURL = "https://cdnjs.cloudflare.com/ajax/libs/Chart.js/4.4.1/chart.umd.min.js"

// TrafficOverviewID identifies the traffic overview template.
const TrafficOverviewID = "traffic-overview"

// TrafficOverview reports request volume, status codes, paths, countries and
// cache performance for one zone.
type TrafficOverview struct {
	// ChartJSURL overrides DefaultChartJSURL.
	ChartJSURL string
	// Now stamps the report date. Defaults to time.Now.
	Now func() time.Time
}

// NewTrafficOverview returns the template with default settings.
func NewTrafficOverview() *TrafficOverview {
	return &TrafficOverview{}
}

func (t *TrafficOverview) ID() string { return TrafficOverviewID }

func (t *TrafficOverview) Name() string { return "Traffic Overview" }

func (t *TrafficOverview) Description() string {
	return "Comprehensive web traffic analytics report with volume, status codes, paths, geography, and cache performance."
}

// Generate queries the zone once, normalizes the result and renders it.
func (t *TrafficOverview) Generate(ctx context.Context, cfg Config, fetch cloudflare.Fetcher) (string, error) {
	query, vars := cloudflare.BuildTrafficOverviewQuery(cfg.ZoneID, cfg.TimeRange)
	raw, err := fetch(ctx, query, vars.Map())
	if err != nil {
		return "", err
	}

	var result cloudflare.TrafficQueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode traffic overview: %w", err)
	}

	data, err := cloudflare.ParseTrafficData(result)
	if err != nil {
		return "", err
	}
	return t.Render(data, cfg)
}

// Render produces the HTML document for already normalized data.
func (t *TrafficOverview) Render(data *cloudflare.TrafficOverviewData, cfg Config) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	chartURL := t.ChartJSURL
	if chartURL == "" {
		chartURL = DefaultChartJSURL
	}

	view := newTrafficView(data, cfg)
	view.Today = now().UTC().Format("2006-01-02")
	view.ChartJSURL = chartURL

	var buf bytes.Buffer
	if err := trafficOverviewTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

type statusBucket struct {
	Class     string
	Count     int64
	Bandwidth int64
}

// trafficView is everything the document template reads. Chart series are
// prepared here so the template only embeds them.
type trafficView struct {
	Zone       string
	DateRange  string
	Today      string
	ChartJSURL string
	Data       *cloudflare.TrafficOverviewData

	HourLabels    []string
	HourRequests  []int64
	StatusClasses []string
	StatusCounts  []int64
	StatusColors  []string
	CountryLabels []string
	CountryCounts []int64
	CacheLabels   []string
	CacheCounts   []int64
	CacheColors   []string
}

func newTrafficView(data *cloudflare.TrafficOverviewData, cfg Config) trafficView {
	v := trafficView{
		Zone:          cfg.ZoneLabel(),
		DateRange:     render.FormatDateRange(cfg.TimeRange.Start, cfg.TimeRange.End),
		Data:          data,
		HourLabels:    make([]string, 0, len(data.TrafficOverTime)),
		HourRequests:  make([]int64, 0, len(data.TrafficOverTime)),
		StatusClasses: []string{},
		StatusCounts:  []int64{},
		StatusColors:  []string{},
		CountryLabels: make([]string, 0, len(data.TopCountries)),
		CountryCounts: make([]int64, 0, len(data.TopCountries)),
		CacheLabels:   make([]string, 0, len(data.CacheStatuses)),
		CacheCounts:   make([]int64, 0, len(data.CacheStatuses)),
		CacheColors:   make([]string, 0, len(data.CacheStatuses)),
	}

	for _, h := range data.TrafficOverTime {
		v.HourLabels = append(v.HourLabels, render.FormatHour(h.Hour))
		v.HourRequests = append(v.HourRequests, h.Requests)
	}

	for _, b := range groupStatusClasses(data.StatusCodes) {
		v.StatusClasses = append(v.StatusClasses, b.Class)
		v.StatusCounts = append(v.StatusCounts, b.Count)
		v.StatusColors = append(v.StatusColors, statusClassColor(b.Class))
	}

	for _, c := range data.TopCountries {
		v.CountryLabels = append(v.CountryLabels, c.Country)
		v.CountryCounts = append(v.CountryCounts, c.Count)
	}

	for _, c := range data.CacheStatuses {
		v.CacheLabels = append(v.CacheLabels, c.Status)
		v.CacheCounts = append(v.CacheCounts, c.Count)
		v.CacheColors = append(v.CacheColors, cacheStatusColor(c.Status))
	}
	return v
}

// groupStatusClasses sums status rows per class, in order of first appearance.
func groupStatusClasses(codes []cloudflare.StatusCodeEntry) []statusBucket {
	var buckets []statusBucket
	index := make(map[string]int)
	for _, sc := range codes {
		class := render.StatusClass(sc.Code)
		i, ok := index[class]
		if !ok {
			i = len(buckets)
			index[class] = i
			buckets = append(buckets, statusBucket{Class: class})
		}
		buckets[i].Count += sc.Count
		buckets[i].Bandwidth += sc.Bandwidth
	}
	return buckets
}

func statusClassColor(class string) string {
	switch class {
	case "2xx":
		return "#4ade80"
	case "3xx":
		return "#38bdf8"
	case "4xx":
		return "#fb923c"
	case "5xx":
		return "#f43f5e"
	default:
		return "#a78bfa"
	}
}

func cacheStatusColor(status string) string {
	switch strings.ToLower(status) {
	case "hit":
		return "#4ade80"
	case "miss":
		return "#f43f5e"
	case "dynamic":
		return "#a78bfa"
	case "expired":
		return "#fb923c"
	case "stale":
		return "#facc15"
	case "revalidated":
		return "#22d3ee"
	default:
		return "#64748b"
	}
}

// The document is assembled with text/template: markup text goes through
// "escape" and script data through "json", which are different contexts.
var trafficOverviewTmpl = template.Must(template.New(TrafficOverviewID).Funcs(template.FuncMap{
	"escape":  render.EscapeHTML,
	"json":    render.SafeJSON,
	"number":  render.FormatNumber,
	"count":   render.FormatCount,
	"bytes":   render.FormatBytes,
	"percent": render.FormatPercent,
	"share": func(part, total int64) string {
		return render.FormatPercent(render.Ratio(part, total))
	},
	"statusTag": render.StatusTag,
	"rank":      func(i int) int { return i + 1 },
}).Parse(trafficOverviewHTML))
