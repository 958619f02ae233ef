// Package cftest provides canned Cloudflare GraphQL responses and stub
// fetchers for tests.
package cftest

import (
	"context"
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed testdata/traffic-overview-response.json
var trafficOverviewResponse []byte

// TrafficOverviewResponse returns the full GraphQL envelope of a week of
// traffic for one zone, as the API would send it.
func TrafficOverviewResponse() []byte {
	out := make([]byte, len(trafficOverviewResponse))
	copy(out, trafficOverviewResponse)
	return out
}

// TrafficOverviewData returns only the "data" payload of the envelope.
func TrafficOverviewData() json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trafficOverviewResponse, &env); err != nil {
		panic("cftest: corrupt fixture: " + err.Error())
	}
	return env.Data
}

// EmptyTrafficData is a zone with zero totals and no detail rows.
func EmptyTrafficData() json.RawMessage {
	return json.RawMessage(`{"viewer":{"zones":[{
		"totals":[{"count":0,"sum":{"edgeResponseBytes":0,"visits":0}}],
		"trafficOverTime":[],"statusCodeBreakdown":[],"topPaths":[],
		"topCountries":[],"cachePerformance":[]}]}}`)
}

// NoZonesData is a payload whose zone list is empty.
func NoZonesData() json.RawMessage {
	return json.RawMessage(`{"viewer":{"zones":[]}}`)
}

// Call records one invocation of a Recorder.
type Call struct {
	Query     string
	Variables map[string]any
}

// Recorder is a stub fetcher that answers every call with the same payload
// or error and keeps the calls it received.
type Recorder struct {
	Data json.RawMessage
	Err  error

	mu    sync.Mutex
	calls []Call
}

// Fetch has the signature of cloudflare.Fetcher.
func (r *Recorder) Fetch(_ context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Query: query, Variables: variables})
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Data, nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}
