// Package client is a Go client for the Terrapix geospatial-analysis API.
// It covers raster upload, detector management, training annotations and
// asynchronous detection jobs.
//
// A Client is stateless beyond its configuration and is safe to share
// between concurrent calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cavaliercoder/grab"
)

const (
	// DefaultServer is the public API endpoint used when none is configured.
	DefaultServer = "https://app.terrapix.com/public/api/v2"

	serverEnv = "TERRAPIX_BASE_URL"
	apiKeyEnv = "TERRAPIX_API_KEY"

	defaultTimeout = 30 * time.Minute
)

// Connector holds the configuration needed to reach a Terrapix server.
type Connector struct {
	// Server is the base URL of the API. Falls back to TERRAPIX_BASE_URL,
	// then to DefaultServer.
	Server string
	// APIKey authenticates every internal call. Falls back to TERRAPIX_API_KEY.
	APIKey string
	// Timeout bounds every operation poll loop. Defaults to 30 minutes.
	Timeout time.Duration
	// HTTPClient overrides the transport (e.g. proxy, TLS settings).
	HTTPClient *http.Client
}

// Client talks to a Terrapix server.
type Client struct {
	server     string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	downloader *grab.Client
}

// Dial resolves the configuration and returns a client.
// Environment fallbacks are read exactly once, here.
func (c Connector) Dial() (*Client, error) {
	server := c.Server
	if server == "" {
		server = os.Getenv(serverEnv)
	}
	if server == "" {
		server = DefaultServer
	}
	apiKey := c.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Dial: missing api key (set %s or Connector.APIKey)", apiKeyEnv)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		server:     strings.TrimRight(server, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: httpClient,
		downloader: grab.NewClient(),
	}, nil
}

// do issues one HTTP request. When internal is true, path is relative to the
// configured server and the api key is injected; otherwise path is an
// absolute URL reached without credentials (pre-signed storage targets).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, internal bool) (*http.Response, error) {
	url := path
	if internal {
		url = c.server + path
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("do.NewRequest: %w", err)
	}
	if internal {
		req.Header.Set("X-Api-Key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// checkResponse classifies a response. The body is consumed on failure, so it
// must be called before any decoding.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(resp.Body)
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, dst interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		r = bytes.NewReader(b)
	}
	resp, err := c.do(ctx, method, path, r, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, dst interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, dst)
}

func (c *Client) putJSON(ctx context.Context, path string, body, dst interface{}) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, dst)
}
