// Package fallbackapi implements the BreachFallback port by delegating
// whole batches to a credreview server's check-pwned endpoint.
package fallbackapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BreachFallback = (*Client)(nil)

// checkRequest is the JSON body sent to the check-pwned endpoint.
type checkRequest struct {
	Passwords []string `json:"passwords"`
}

// checkResponse is the success body; a null count means unknown.
type checkResponse struct {
	Counts []model.BreachCount `json:"counts"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client posts secrets to a trusted server and returns its positional
// counts.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 60 * time.Second}, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for tests that point at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		http:     httpClient,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/check-pwned",
	}
}

// CountSecrets submits secrets in order and returns one count per secret.
func (c *Client) CountSecrets(ctx context.Context, secrets []string) ([]model.BreachCount, error) {
	body, err := json.Marshal(checkRequest{Passwords: secrets})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling fallback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		if e.Error != "" {
			return nil, fmt.Errorf("fallback returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("fallback returned %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding fallback response: %w", err)
	}
	if len(out.Counts) != len(secrets) {
		return nil, fmt.Errorf("fallback returned %d counts for %d secrets", len(out.Counts), len(secrets))
	}
	return out.Counts, nil
}
