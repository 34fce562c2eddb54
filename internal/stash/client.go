// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

/*
client.go - Upstream GraphQL Client Core

One Client per configured upstream instance. Every query goes through the
same path: rate limiter wait, circuit breaker execute, HTTP POST, envelope
decode, GraphQL error check.

Resilience:
  - Rate limiting: token bucket (golang.org/x/time/rate) shared by all
    callers of one instance.
  - Circuit breaker: opens after consecutive failures so a dead upstream
    fails fast instead of stalling a sync run for minutes.
  - Context: all methods accept context for cancellation; the sync engine
    cancels at page boundaries.
*/
package stash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/logging"
	"github.com/curator-app/curator/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// ErrMissingCount is returned when the upstream response omits the total
// result count. Pagination cannot terminate without it, so the sync treats
// this as fatal rather than looping.
var ErrMissingCount = errors.New("upstream response missing result count")

// Client is a GraphQL client bound to one upstream instance.
type Client struct {
	instance string
	baseURL  string
	apiKey   string

	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a client for one upstream instance.
func NewClient(inst models.Instance, cfg *config.UpstreamConfig) *Client {
	name := "upstream-" + inst.ID

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upstream circuit breaker state change")
		},
	})

	return &Client{
		instance: inst.ID,
		baseURL:  inst.BaseURL,
		apiKey:   inst.APIKey,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker: breaker,
	}
}

// Instance returns the instance id this client is bound to.
func (c *Client) Instance() string {
	return c.instance
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// query executes one GraphQL document and unmarshals the data payload into
// result. Rate limiting and the circuit breaker wrap the HTTP round trip.
func (c *Client) query(ctx context.Context, document string, variables map[string]any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, document, variables)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("upstream %s unavailable (circuit open): %w", c.instance, err)
		}
		return err
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

// post performs the HTTP POST and returns the GraphQL data payload.
func (c *Client) post(ctx context.Context, document string, variables map[string]any) ([]byte, error) {
	body, err := json.Marshal(graphqlRequest{Query: document, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope graphqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode upstream envelope: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("upstream graphql error: %s", envelope.Errors[0].Message)
	}
	return envelope.Data, nil
}

// Ping verifies connectivity with a minimal version query.
func (c *Client) Ping(ctx context.Context) error {
	var result struct {
		Version struct {
			Version *string `json:"version"`
		} `json:"version"`
	}
	if err := c.query(ctx, `query Version { version { version } }`, nil, &result); err != nil {
		return fmt.Errorf("failed to ping upstream %s: %w", c.instance, err)
	}
	return nil
}

// readBodyForError reads a bounded prefix of the response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// findFilter builds the common paging filter. Sorting ascending by
// updated_at keeps cursor advancement monotonic within a run.
func findFilter(page, perPage int) map[string]any {
	return map[string]any{
		"page":      page,
		"per_page":  perPage,
		"sort":      "updated_at",
		"direction": "ASC",
	}
}

// updatedAfterFilter builds the kind filter for incremental fetches. The
// value must already be cursor-normalized by the caller.
func updatedAfterFilter(updatedAfter string) map[string]any {
	if updatedAfter == "" {
		return nil
	}
	return map[string]any{
		"updated_at": map[string]any{
			"value":    updatedAfter,
			"modifier": "GREATER_THAN",
		},
	}
}
