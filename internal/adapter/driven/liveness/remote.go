package liveness

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SiteProber = (*RemoteClient)(nil)

// RemoteClient delegates probes to a credreview server so that callers
// without direct network reach (or CORS limits) get the same verdicts.
type RemoteClient struct {
	http     *http.Client
	endpoint string
	logger   *slog.Logger
}

// NewRemoteClient creates a RemoteClient for the server at baseURL.
func NewRemoteClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *RemoteClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RemoteClient{
		http:     httpClient,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/probe",
		logger:   logger,
	}
}

// Probe asks the server to classify rawURL. Any transport or decoding
// failure yields an unknown result.
func (c *RemoteClient) Probe(ctx context.Context, rawURL string) model.ProbeResult {
	body, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return model.UnknownProbeResult()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.UnknownProbeResult()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("remote probe failed", "url", rawURL, "error", err)
		return model.UnknownProbeResult()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("remote probe rejected", "url", rawURL, "status", resp.StatusCode)
		return model.UnknownProbeResult()
	}

	var out model.ProbeResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.UnknownProbeResult()
	}
	switch out.Status {
	case model.SiteStatusAlive, model.SiteStatusDead, model.SiteStatusUnknown:
		return out
	default:
		return model.UnknownProbeResult()
	}
}
