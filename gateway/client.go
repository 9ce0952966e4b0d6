// Package gateway wraps the four remote endpoints the dashboard depends on:
// chat webhook, document listing, file upload and triggers.
//
// Every call issues exactly one HTTP request and never retries. Transport
// failures (network error, non-2xx status, empty or unparsable body) are
// returned as errors that match ErrUnavailable, so callers can treat them
// uniformly as "offline".
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/techpathlabs/milestonedesk/config"
)

// ErrUnavailable is matched by every transport-level gateway failure.
var ErrUnavailable = errors.New("gateway unavailable")

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Endpoint, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

// TransportError reports a request that never produced a response.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// Endpoint names used in errors and logs
const (
	EndpointChat      = "chat"
	EndpointDocuments = "documents"
	EndpointUpload    = "upload"
	EndpointTriggers  = "triggers"
)

// Client talks to the remote endpoints configured in config.GatewayConfig.
type Client struct {
	config     *config.GatewayConfig
	httpClient *http.Client
}

func NewClient(cfg *config.GatewayConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func unavailable(endpoint, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", endpoint, fmt.Sprintf(format, args...), ErrUnavailable)
}

// newRequest builds a request carrying the configured API token.
func (c *Client) newRequest(ctx context.Context, endpoint, method, url string, body io.Reader) (*http.Request, error) {
	if strings.TrimSpace(url) == "" {
		return nil, unavailable(endpoint, "endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, unavailable(endpoint, "failed to create request: %v", err)
	}
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and returns the response body of a 2xx response.
func (c *Client) do(endpoint string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	return body, nil
}

// doJSON is do for endpoints whose response must carry a body.
func (c *Client) doJSON(endpoint string, req *http.Request) ([]byte, error) {
	body, err := c.do(endpoint, req)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, unavailable(endpoint, "empty response body")
	}
	return body, nil
}
