package metricsquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetryMax = 2
	queryRoute      = "/api/v1/query"
)

// HTTPEvaluator queries a metrics backend over its HTTP query API.
type HTTPEvaluator struct {
	logger  zerolog.Logger
	baseURL string
	client  *retryablehttp.Client
	now     func() time.Time
}

// HTTPOption customizes HTTPEvaluator behavior.
type HTTPOption func(*HTTPEvaluator)

// WithClock overrides the time source (primarily for testing).
func WithClock(now func() time.Time) HTTPOption {
	return func(e *HTTPEvaluator) {
		e.now = now
	}
}

// NewHTTPEvaluator constructs an evaluator for the given backend base URL.
func NewHTTPEvaluator(logger zerolog.Logger, baseURL string, opts ...HTTPOption) (*HTTPEvaluator, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid metrics url %q", baseURL)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: defaultTimeout}

	e := &HTTPEvaluator{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate implements Evaluator.
func (e *HTTPEvaluator) Evaluate(ctx context.Context, q Query) (Observation, error) {
	if err := q.Validate(); err != nil {
		return Observation{}, err
	}

	value, err := e.fetch(ctx, q)
	if err != nil {
		if q.Kind == KindErrorRate {
			return Observation{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		e.logger.Warn().
			Err(err).
			Str("kind", string(q.Kind)).
			Str("environment", q.Environment).
			Msg("metrics backend unreachable, assuming healthy for secondary probe")
		return Observation{
			Kind:      q.Kind,
			Threshold: q.Threshold,
			Pass:      true,
			Degraded:  true,
			At:        e.now().UTC(),
		}, nil
	}

	return Observation{
		Kind:      q.Kind,
		Value:     value,
		Threshold: q.Threshold,
		Pass:      value <= q.Threshold,
		At:        e.now().UTC(),
	}, nil
}

func (e *HTTPEvaluator) fetch(ctx context.Context, q Query) (float64, error) {
	params := url.Values{}
	params.Set("metric", string(q.Kind))
	params.Set("environment", q.Environment)
	if q.Deployment != "" {
		params.Set("deployment", q.Deployment)
	}
	params.Set("window", strconv.Itoa(int(q.Window.Seconds())))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+queryRoute+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("query failed: status %d (%s)", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode query response: %w", err)
	}
	return payload.Value, nil
}
