// Package ai handles communication with Ollama's local API: streaming
// generation, model discovery and one-shot generation for health checks.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/logging"
)

const (
	generatePath = "/api/generate"
	tagsPath     = "/api/tags"
	timeout      = 60 * time.Second
)

// Client communicates with the Ollama API.
type Client struct {
	endpoint          string
	pacingDelay       time.Duration
	maxDecodeFailures int

	// streamClient has no overall timeout; streams run until done or cancelled.
	streamClient *http.Client
	httpClient   *http.Client
	log          *logrus.Entry
}

// NewClient creates a client for the endpoint in cfg.
func NewClient(cfg *config.Config) *Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{Timeout: connect}).DialContext,
	}

	return &Client{
		endpoint:          strings.TrimRight(cfg.Endpoint, "/"),
		pacingDelay:       cfg.PacingDelay,
		maxDecodeFailures: cfg.MaxDecodeFailures,
		streamClient:      &http.Client{Transport: transport},
		httpClient:        &http.Client{Transport: transport, Timeout: timeout},
		log:               logging.Component("ai").WithField("endpoint", cfg.Endpoint),
	}
}

// Endpoint returns the base URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+tagsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach Ollama at %s, is it running? (start with: ollama serve): %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, tagsPath)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}
	return tags.Models, nil
}

// HasModel reports whether a model whose name starts with name's base
// (the part before ":") is installed.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	base := strings.Split(name, ":")[0]
	for _, m := range models {
		if m.Name == name || strings.HasPrefix(m.Name, base) {
			return true, nil
		}
	}
	return false, nil
}

// Generate runs req without streaming and returns the full response.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	resp, err := c.post(ctx, c.httpClient, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, req.Model); err != nil {
		return "", err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, req GenerationRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(req.wire(stream))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "application/x-ndjson")
	}
	return hc.Do(httpReq)
}

// checkStatus turns a non-2xx response into a *RequestFailedError.
func checkStatus(resp *http.Response, model string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	body := strings.TrimSpace(string(msg))

	// Ollama wraps errors as {"error": "..."}.
	var wrapped struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(msg, &wrapped) == nil && wrapped.Error != "" {
		body = wrapped.Error
	}
	return &RequestFailedError{StatusCode: resp.StatusCode, Model: model, Body: body}
}
