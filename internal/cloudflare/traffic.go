package cloudflare

import (
	"errors"
	"strings"
)

// ErrNoZone means the response held no zone matching the requested tag.
var ErrNoZone = errors.New("No zone data returned from Cloudflare API")

// Result limits of the traffic overview aggregations.
const (
	HourlyLimit       = 1000
	StatusCodeLimit   = 100
	TopPathsLimit     = 20
	TopCountriesLimit = 15
	CacheStatusLimit  = 20
)

// trafficOverviewQuery fetches all six aggregations in a single round trip.
const trafficOverviewQuery = `
query TrafficOverview($zoneTag: string!, $since: string!, $until: string!) {
  viewer {
    zones(filter: { zoneTag: $zoneTag }) {
      totals: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 1
      ) {
        count
        sum { edgeResponseBytes visits }
      }
      trafficOverTime: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 1000
        orderBy: [datetimeHour_ASC]
      ) {
        count
        sum { edgeResponseBytes visits }
        dimensions { datetimeHour }
      }
      statusCodeBreakdown: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 100
        orderBy: [count_DESC]
      ) {
        count
        sum { edgeResponseBytes }
        dimensions { edgeResponseStatus }
      }
      topPaths: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 20
        orderBy: [count_DESC]
      ) {
        count
        sum { edgeResponseBytes }
        dimensions { clientRequestPath }
      }
      topCountries: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 15
        orderBy: [count_DESC]
      ) {
        count
        sum { edgeResponseBytes visits }
        dimensions { clientCountryName }
      }
      cachePerformance: httpRequestsAdaptiveGroups(
        filter: { datetime_gt: $since, datetime_lt: $until }
        limit: 20
        orderBy: [count_DESC]
      ) {
        count
        sum { edgeResponseBytes }
        dimensions { cacheStatus }
      }
    }
  }
}`

// TrafficOverviewVariables are the bindings of the traffic overview query.
type TrafficOverviewVariables struct {
	ZoneTag string
	Since   string
	Until   string
}

// Map returns the variables keyed by their GraphQL names.
func (v TrafficOverviewVariables) Map() map[string]any {
	return map[string]any{
		"zoneTag": v.ZoneTag,
		"since":   v.Since,
		"until":   v.Until,
	}
}

// BuildTrafficOverviewQuery returns the static query and its bindings.
func BuildTrafficOverviewQuery(zoneID string, tr TimeRange) (string, TrafficOverviewVariables) {
	return trafficOverviewQuery, TrafficOverviewVariables{
		ZoneTag: zoneID,
		Since:   tr.Start,
		Until:   tr.End,
	}
}

// HourlyTraffic is one bucket of the request time series.
type HourlyTraffic struct {
	Hour      string `json:"hour"`
	Requests  int64  `json:"requests"`
	Bandwidth int64  `json:"bandwidth"`
	Visitors  int64  `json:"visitors"`
}

// StatusCodeEntry is one edge response status bucket.
type StatusCodeEntry struct {
	Code      int   `json:"code"`
	Count     int64 `json:"count"`
	Bandwidth int64 `json:"bandwidth"`
}

// PathEntry is one requested path bucket.
type PathEntry struct {
	Path      string `json:"path"`
	Count     int64  `json:"count"`
	Bandwidth int64  `json:"bandwidth"`
}

// CountryEntry is one client country bucket.
type CountryEntry struct {
	Country   string `json:"country"`
	Count     int64  `json:"count"`
	Bandwidth int64  `json:"bandwidth"`
	Visitors  int64  `json:"visitors"`
}

// CacheStatusEntry is one cache status bucket.
type CacheStatusEntry struct {
	Status    string `json:"status"`
	Count     int64  `json:"count"`
	Bandwidth int64  `json:"bandwidth"`
}

// TrafficOverviewData is the normalized traffic overview.
type TrafficOverviewData struct {
	TotalRequests   int64              `json:"totalRequests"`
	TotalBandwidth  int64              `json:"totalBandwidth"`
	TotalVisitors   int64              `json:"totalVisitors"`
	CacheHitRatio   float64            `json:"cacheHitRatio"`
	TrafficOverTime []HourlyTraffic    `json:"trafficOverTime"`
	StatusCodes     []StatusCodeEntry  `json:"statusCodes"`
	TopPaths        []PathEntry        `json:"topPaths"`
	TopCountries    []CountryEntry     `json:"topCountries"`
	CacheStatuses   []CacheStatusEntry `json:"cacheStatuses"`
}

// ParseTrafficData flattens the raw query result. Upstream ordering is kept.
func ParseTrafficData(raw TrafficQueryResult) (*TrafficOverviewData, error) {
	if len(raw.Viewer.Zones) == 0 {
		return nil, ErrNoZone
	}
	zone := raw.Viewer.Zones[0]
	if zone == nil {
		return nil, ErrNoZone
	}

	data := &TrafficOverviewData{
		CacheHitRatio:   CacheHitRatio(zone.CachePerformance),
		TrafficOverTime: make([]HourlyTraffic, 0, len(zone.TrafficOverTime)),
		StatusCodes:     make([]StatusCodeEntry, 0, len(zone.StatusCodeBreakdown)),
		TopPaths:        make([]PathEntry, 0, len(zone.TopPaths)),
		TopCountries:    make([]CountryEntry, 0, len(zone.TopCountries)),
		CacheStatuses:   make([]CacheStatusEntry, 0, len(zone.CachePerformance)),
	}

	// Totals are trusted as-is, independent of the detail aggregations.
	if len(zone.Totals) > 0 {
		t := zone.Totals[0]
		data.TotalRequests = nonNegative(t.Count)
		data.TotalBandwidth = nonNegative(t.Sum.EdgeResponseBytes)
		data.TotalVisitors = nonNegative(t.Sum.Visits)
	}

	for _, g := range zone.TrafficOverTime {
		data.TrafficOverTime = append(data.TrafficOverTime, HourlyTraffic{
			Hour:      g.Dimensions.String("datetimeHour"),
			Requests:  nonNegative(g.Count),
			Bandwidth: nonNegative(g.Sum.EdgeResponseBytes),
			Visitors:  nonNegative(g.Sum.Visits),
		})
	}

	for _, g := range zone.StatusCodeBreakdown {
		data.StatusCodes = append(data.StatusCodes, StatusCodeEntry{
			Code:      g.Dimensions.Int("edgeResponseStatus"),
			Count:     nonNegative(g.Count),
			Bandwidth: nonNegative(g.Sum.EdgeResponseBytes),
		})
	}

	for _, g := range zone.TopPaths {
		data.TopPaths = append(data.TopPaths, PathEntry{
			Path:      g.Dimensions.String("clientRequestPath"),
			Count:     nonNegative(g.Count),
			Bandwidth: nonNegative(g.Sum.EdgeResponseBytes),
		})
	}

	for _, g := range zone.TopCountries {
		data.TopCountries = append(data.TopCountries, CountryEntry{
			Country:   g.Dimensions.String("clientCountryName"),
			Count:     nonNegative(g.Count),
			Bandwidth: nonNegative(g.Sum.EdgeResponseBytes),
			Visitors:  nonNegative(g.Sum.Visits),
		})
	}

	for _, g := range zone.CachePerformance {
		data.CacheStatuses = append(data.CacheStatuses, CacheStatusEntry{
			Status:    g.Dimensions.String("cacheStatus"),
			Count:     nonNegative(g.Count),
			Bandwidth: nonNegative(g.Sum.EdgeResponseBytes),
		})
	}

	return data, nil
}

// hitStatuses count toward the numerator of the cache hit ratio. Stale and
// revalidated responses were served from cache and count as hits.
var hitStatuses = map[string]bool{
	"hit":         true,
	"stale":       true,
	"revalidated": true,
}

// CacheHitRatio is hits over cacheable requests. "none" and "dynamic" rows are
// not cacheable and are left out of the denominator. The result is 0 when
// nothing was cacheable.
func CacheHitRatio(groups []RequestsGroup) float64 {
	var hits, cacheable int64
	for _, g := range groups {
		status := strings.ToLower(g.Dimensions.String("cacheStatus"))
		if status == "none" || status == "dynamic" {
			continue
		}
		count := nonNegative(g.Count)
		cacheable += count
		if hitStatuses[status] {
			hits += count
		}
	}
	if cacheable <= 0 {
		return 0
	}
	return float64(hits) / float64(cacheable)
}

func nonNegative(n Metric) int64 {
	if n < 0 {
		return 0
	}
	return int64(n)
}
