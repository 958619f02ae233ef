// Package cloudflare talks to the Cloudflare GraphQL Analytics API and turns
// its nested responses into flat report data.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultEndpoint is the Cloudflare GraphQL Analytics API.
const DefaultEndpoint = "https://api.cloudflare.com/client/v4/graphql"

// maxResponseBytes caps how much of an upstream response body is read.
const maxResponseBytes = 32 << 20

// ErrEmptyResponse means the API answered without a data payload or errors.
var ErrEmptyResponse = errors.New("Empty response from Cloudflare API")

// APIError is returned for non-2xx responses and for GraphQL error lists.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []GraphQLError
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Fetcher executes a GraphQL query and returns the raw data payload.
type Fetcher func(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)

// Client executes GraphQL queries with a bearer token.
type Client struct {
	endpoint   string
	apiToken   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client, e.g. to impose a deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client bound to apiToken.
func NewClient(apiToken string, opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetcher returns Query as a Fetcher value.
func (c *Client) Fetcher() Fetcher {
	return c.Query
}

// Query posts the query and returns the "data" payload. No retries are made.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Cloudflare API HTTP %d: %s", resp.StatusCode, statusText(resp)),
		}
	}

	var gql graphQLResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&gql); err != nil {
		return nil, fmt.Errorf("decode cloudflare response: %w", err)
	}

	if len(gql.Errors) > 0 {
		msgs := make([]string, len(gql.Errors))
		for i, e := range gql.Errors {
			msgs[i] = e.Message
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.Join(msgs, "; "),
			Errors:     gql.Errors,
		}
	}

	if isNullJSON(gql.Data) {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    ErrEmptyResponse.Error(),
			Err:        ErrEmptyResponse,
		}
	}

	return gql.Data, nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(resp.Status)
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ResolveAPIToken returns the token from CLOUDFLARE_API_TOKEN or CF_API_TOKEN.
func ResolveAPIToken() string {
	if env := strings.TrimSpace(os.Getenv("CLOUDFLARE_API_TOKEN")); env != "" {
		return env
	}
	return strings.TrimSpace(os.Getenv("CF_API_TOKEN"))
}
