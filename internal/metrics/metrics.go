package metrics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
)

const namespace = "cfreporting"

// Metrics holds all Prometheus metrics for cf-reporting.
type Metrics struct {
	// HTTP server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BlockedBotsTotal    prometheus.Counter

	// SSE metrics
	SSESubscribersGauge prometheus.GaugeFunc
	SSEDroppedTotal     prometheus.Counter

	// Report generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ReportSizeBytes    prometheus.Histogram

	// Cloudflare API metrics
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      prometheus.Histogram

	// Alerting metrics
	AlertsFiredTotal *prometheus.CounterVec

	// Database metrics
	DBSizeBytes        prometheus.GaugeFunc
	DBGenerationsTotal prometheus.GaugeFunc

	// Geo lookup cache metrics
	GeoCacheSize     prometheus.GaugeFunc
	GeoCacheCapacity prometheus.GaugeFunc
	GeoCacheHits     prometheus.GaugeFunc
	GeoCacheMisses   prometheus.GaugeFunc
	GeoCacheEvicts   prometheus.GaugeFunc
	GeoCacheHitRate  prometheus.GaugeFunc
}

// GeoCacheStats mirrors the counters of the requester geo lookup cache.
type GeoCacheStats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
	Evicts   uint64
	HitRate  float64
}

// DBStats represents database statistics returned by the stats provider function.
type DBStats struct {
	Generations int64
}

// cachedDBStats caches the result of dbStatsFunc for all gauge funcs in a single scrape.
type cachedDBStats struct {
	mu          sync.RWMutex
	getStats    func() DBStats
	cachedStats DBStats
	cachedAt    int64 // Unix nanoseconds
}

func newCachedDBStats(getStats func() DBStats) *cachedDBStats {
	if getStats == nil {
		getStats = func() DBStats { return DBStats{} }
	}
	return &cachedDBStats{getStats: getStats}
}

func (c *cachedDBStats) get() DBStats {
	now := time.Now().UnixNano()

	c.mu.RLock()
	if c.cachedAt != 0 && now-c.cachedAt <= int64(time.Second) {
		stats := c.cachedStats
		c.mu.RUnlock()
		return stats
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedAt == 0 || now-c.cachedAt > int64(time.Second) {
		c.cachedStats = c.getStats()
		c.cachedAt = now
	}
	return c.cachedStats
}

// New creates all Prometheus metrics. Nil provider funcs report zero, which
// is what a server running without a history database or GeoIP exposes.
func New(
	sseClientCountFunc func() int,
	dbSizeFunc func() int64,
	dbStatsFunc func() DBStats,
	geoCacheStatsFunc func() *GeoCacheStats,
) *Metrics {
	cache := newCachedDBStats(dbStatsFunc)
	if sseClientCountFunc == nil {
		sseClientCountFunc = func() int { return 0 }
	}
	if dbSizeFunc == nil {
		dbSizeFunc = func() int64 { return 0 }
	}

	geo := func(pick func(*GeoCacheStats) float64) func() float64 {
		return func() float64 {
			if geoCacheStatsFunc == nil {
				return 0
			}
			stats := geoCacheStatsFunc()
			if stats == nil {
				return 0
			}
			return pick(stats)
		}
	}

	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		BlockedBotsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "blocked_bots_total",
				Help:      "Report requests rejected because the client is a crawler",
			},
		),
		SSESubscribersGauge: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sse",
				Name:      "subscribers",
				Help:      "Current number of SSE subscribers",
			},
			func() float64 {
				return float64(sseClientCountFunc())
			},
		),
		SSEDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sse",
				Name:      "dropped_events_total",
				Help:      "Events dropped because a subscriber buffer was full",
			},
		),
		AlertsFiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "fired_total",
				Help:      "Alerts fired by type and severity",
			},
			[]string{"type", "severity"},
		),
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reports",
				Name:      "generations_total",
				Help:      "Report generations by template and outcome",
			},
			[]string{"template", "outcome"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reports",
				Name:      "generation_duration_seconds",
				Help:      "End-to-end report generation time in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"template"},
		),
		ReportSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reports",
				Name:      "size_bytes",
				Help:      "Size of rendered reports in bytes",
				Buckets:   prometheus.ExponentialBuckets(8<<10, 2, 8),
			},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Cloudflare GraphQL requests by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Cloudflare GraphQL round trip time in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		DBSizeBytes: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "size_bytes",
				Help:      "Size of the SQLite database in bytes",
			},
			func() float64 {
				return float64(dbSizeFunc())
			},
		),
		DBGenerationsTotal: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "generations_total",
				Help:      "Total number of rows in the generation history",
			},
			func() float64 {
				return float64(cache.get().Generations)
			},
		),
		GeoCacheSize: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "size",
				Help:      "Current number of entries in the geo lookup cache",
			},
			geo(func(s *GeoCacheStats) float64 { return float64(s.Size) }),
		),
		GeoCacheCapacity: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "capacity",
				Help:      "Maximum number of entries in the geo lookup cache",
			},
			geo(func(s *GeoCacheStats) float64 { return float64(s.Capacity) }),
		),
		GeoCacheHits: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "hits",
				Help:      "Geo lookup cache hits",
			},
			geo(func(s *GeoCacheStats) float64 { return float64(s.Hits) }),
		),
		GeoCacheMisses: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "misses",
				Help:      "Geo lookup cache misses",
			},
			geo(func(s *GeoCacheStats) float64 { return float64(s.Misses) }),
		),
		GeoCacheEvicts: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "evictions",
				Help:      "Geo lookup cache evictions",
			},
			geo(func(s *GeoCacheStats) float64 { return float64(s.Evicts) }),
		),
		GeoCacheHitRate: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "geocache",
				Name:      "hit_rate",
				Help:      "Geo lookup cache hit rate between 0 and 1",
			},
			geo(func(s *GeoCacheStats) float64 { return s.HitRate }),
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BlockedBotsTotal,
		m.SSESubscribersGauge,
		m.SSEDroppedTotal,
		m.GenerationsTotal,
		m.GenerationDuration,
		m.ReportSizeBytes,
		m.UpstreamRequestsTotal,
		m.UpstreamDuration,
		m.AlertsFiredTotal,
		m.DBSizeBytes,
		m.DBGenerationsTotal,
		m.GeoCacheSize,
		m.GeoCacheCapacity,
		m.GeoCacheHits,
		m.GeoCacheMisses,
		m.GeoCacheEvicts,
		m.GeoCacheHitRate,
	}
}

// Register registers all metrics with the default Prometheus registry.
func (m *Metrics) Register() error {
	return m.RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers all metrics with reg.
func (m *Metrics) RegisterWith(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBlockedBot counts a rejected crawler request.
func (m *Metrics) RecordBlockedBot() {
	m.BlockedBotsTotal.Inc()
}

// RecordSSEDropped counts an event dropped for a slow subscriber.
func (m *Metrics) RecordSSEDropped() {
	m.SSEDroppedTotal.Inc()
}

// RecordAlert counts a fired alert.
func (m *Metrics) RecordAlert(alertType, severity string) {
	m.AlertsFiredTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordGeneration records one finished generation. outcome is "ok",
// "client_error" or "error"; size is only observed for successful reports.
func (m *Metrics) RecordGeneration(templateID, outcome string, durationSec float64, size int) {
	m.GenerationsTotal.WithLabelValues(templateID, outcome).Inc()
	m.GenerationDuration.WithLabelValues(templateID).Observe(durationSec)
	if outcome == "ok" {
		m.ReportSizeBytes.Observe(float64(size))
	}
}

// RecordUpstream records one Cloudflare API round trip.
func (m *Metrics) RecordUpstream(err error, durationSec float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamDuration.Observe(durationSec)
}

// InstrumentFetcher wraps f so every call is timed and counted.
func (m *Metrics) InstrumentFetcher(f cloudflare.Fetcher) cloudflare.Fetcher {
	return func(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
		start := time.Now()
		data, err := f(ctx, query, variables)
		m.RecordUpstream(err, time.Since(start).Seconds())
		return data, err
	}
}
