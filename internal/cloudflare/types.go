package cloudflare

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// TimeRange bounds an analytics query. Both ends are passed upstream verbatim.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GraphQLError is a single entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string   `json:"message"`
	Path       []string `json:"path,omitempty"`
	Extensions *struct {
		Code string `json:"code"`
	} `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// RequestsGroup is one httpRequestsAdaptiveGroups row. Absent fields decode to
// their zero values.
type RequestsGroup struct {
	Count      Metric     `json:"count"`
	Sum        GroupSum   `json:"sum"`
	Dimensions Dimensions `json:"dimensions"`
}

// GroupSum holds the summed metrics of a group.
type GroupSum struct {
	EdgeResponseBytes Metric `json:"edgeResponseBytes"`
	Visits            Metric `json:"visits"`
}

// Metric is an aggregate count. Integral values in float notation such as
// 3.0 are accepted; fractions round to the nearest integer.
type Metric int64

// UnmarshalJSON accepts JSON numbers, numeric strings and null.
func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*m = Metric(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) {
		return fmt.Errorf("metric %q is not a number", n.String())
	}
	switch {
	case f >= math.MaxInt64:
		*m = math.MaxInt64
	case f <= math.MinInt64:
		*m = math.MinInt64
	default:
		*m = Metric(math.Round(f))
	}
	return nil
}

// Dimensions holds a group's dimension values, which upstream sends as either
// strings or numbers.
type Dimensions map[string]any

// String returns the dimension as text, or "" when absent.
func (d Dimensions) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the dimension as an integer, or 0 when absent or not numeric.
func (d Dimensions) Int(key string) int {
	switch v := d[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ZoneTraffic holds the six aliased aggregations of the traffic overview query.
type ZoneTraffic struct {
	Totals              []RequestsGroup `json:"totals"`
	TrafficOverTime     []RequestsGroup `json:"trafficOverTime"`
	StatusCodeBreakdown []RequestsGroup `json:"statusCodeBreakdown"`
	TopPaths            []RequestsGroup `json:"topPaths"`
	TopCountries        []RequestsGroup `json:"topCountries"`
	CachePerformance    []RequestsGroup `json:"cachePerformance"`
}

// TrafficQueryResult is the raw data payload of the traffic overview query.
type TrafficQueryResult struct {
	Viewer struct {
		Zones []*ZoneTraffic `json:"zones"`
	} `json:"viewer"`
}
