package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetryMax   = 3
	errorBodyLimit    = 1024
	jsonContentType   = "application/json"
	apiVersionPrefix  = "/v1"
	environmentsRoute = apiVersionPrefix + "/environments"
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("platform api: status %d (%s)", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("platform api: status %d", e.StatusCode)
}

// ErrNotFound is returned when the platform has no such deployment.
var ErrNotFound = errors.New("platform: deployment not found")

// HTTPClient talks to the workload platform over its HTTP API.
type HTTPClient struct {
	logger  zerolog.Logger
	baseURL string
	client  *retryablehttp.Client
	onError func()
}

// HTTPOption customizes HTTPClient behavior.
type HTTPOption func(*HTTPClient)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.client.HTTPClient.Timeout = timeout
	}
}

// WithErrorHook registers a callback invoked once per failed API call,
// typically to bump an error counter.
func WithErrorHook(hook func()) HTTPOption {
	return func(c *HTTPClient) {
		c.onError = hook
	}
}

// NewHTTPClient constructs a platform client for the given base URL.
func NewHTTPClient(logger zerolog.Logger, baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid platform url %q", baseURL)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: defaultTimeout}

	c := &HTTPClient{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping implements Client.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, apiVersionPrefix+"/ping", nil, nil)
}

// Deploy implements Client.
func (c *HTTPClient) Deploy(ctx context.Context, d Deployment) error {
	path := fmt.Sprintf("%s/%s/deployments/%s", environmentsRoute, url.PathEscape(d.Environment), url.PathEscape(d.Name))
	return c.do(ctx, http.MethodPut, path, d, nil)
}

// Delete implements Client.
func (c *HTTPClient) Delete(ctx context.Context, environment, name string) error {
	path := fmt.Sprintf("%s/%s/deployments/%s", environmentsRoute, url.PathEscape(environment), url.PathEscape(name))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Status implements Client.
func (c *HTTPClient) Status(ctx context.Context, environment, name string) (*DeploymentStatus, error) {
	path := fmt.Sprintf("%s/%s/deployments/%s", environmentsRoute, url.PathEscape(environment), url.PathEscape(name))
	var status DeploymentStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetWeights implements Client.
func (c *HTTPClient) SetWeights(ctx context.Context, environment string, weights map[string]int) error {
	path := fmt.Sprintf("%s/%s/traffic", environmentsRoute, url.PathEscape(environment))
	payload := struct {
		Weights map[string]int `json:"weights"`
	}{Weights: weights}
	return c.do(ctx, http.MethodPut, path, payload, nil)
}

// ActiveSlot implements Client.
func (c *HTTPClient) ActiveSlot(ctx context.Context, environment string) (string, error) {
	path := fmt.Sprintf("%s/%s/routing", environmentsRoute, url.PathEscape(environment))
	var routing struct {
		ActiveSlot string `json:"active_slot"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &routing); err != nil {
		return "", err
	}
	return routing.ActiveSlot, nil
}

// SetActiveSlot implements Client.
func (c *HTTPClient) SetActiveSlot(ctx context.Context, environment, slot string) error {
	path := fmt.Sprintf("%s/%s/routing", environmentsRoute, url.PathEscape(environment))
	payload := struct {
		ActiveSlot string `json:"active_slot"`
	}{ActiveSlot: slot}
	return c.do(ctx, http.MethodPut, path, payload, nil)
}

// ProbeEndpoint implements Client.
func (c *HTTPClient) ProbeEndpoint(ctx context.Context, environment string) error {
	path := fmt.Sprintf("%s/%s/endpoint/probe", environmentsRoute, url.PathEscape(environment))
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

// Close implements Client.
func (c *HTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", jsonContentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.countError()
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.countError()
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.countError()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) countError() {
	if c.onError != nil {
		c.onError()
	}
}
