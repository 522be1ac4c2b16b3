package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const errorBodyLimit = 1024

type timingConfig struct {
	timeout           time.Duration
	rateInterval      time.Duration
	rateBurst         int
	backoffInitial    time.Duration
	backoffMax        time.Duration
	backoffMaxElapsed time.Duration
}

var defaultTiming = timingConfig{
	timeout:           10 * time.Second,
	rateInterval:      1 * time.Second,
	rateBurst:         1,
	backoffInitial:    1 * time.Second,
	backoffMax:        10 * time.Second,
	backoffMaxElapsed: 30 * time.Second,
}

// poster posts JSON payloads to a webhook with per-source rate limiting and
// bounded retry on transient failures. Retries happen here, not in the
// retryablehttp client, so Retry-After hints can be honored.
type poster struct {
	logger      zerolog.Logger
	channelName string
	webhookURL  string
	contentType string
	client      *retryablehttp.Client
	timing      timingConfig
	limiterMu   sync.Mutex
	limiters    map[string]*rate.Limiter
}

func newPoster(logger zerolog.Logger, channelName, webhookURL, contentType string, timing timingConfig) *poster {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timing.timeout}

	return &poster{
		logger:      logger,
		channelName: channelName,
		webhookURL:  webhookURL,
		contentType: contentType,
		client:      client,
		timing:      timing,
		limiters:    make(map[string]*rate.Limiter),
	}
}

func (p *poster) waitForRateLimit(ctx context.Context, source string) error {
	p.limiterMu.Lock()
	limiter, ok := p.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(p.timing.rateInterval), p.timing.rateBurst)
		p.limiters[source] = limiter
	}
	p.limiterMu.Unlock()
	return limiter.Wait(ctx)
}

func (p *poster) postWithRetry(ctx context.Context, payload []byte) error {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = p.timing.backoffInitial
	schedule.MaxInterval = p.timing.backoffMax
	schedule.MaxElapsedTime = p.timing.backoffMaxElapsed
	schedule.Reset()

	for {
		err := p.postOnce(ctx, payload)
		if err == nil {
			return nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return err
		}

		wait := transient.retryAfter
		if wait <= 0 {
			wait = schedule.NextBackOff()
			if wait == backoff.Stop {
				return err
			}
		}
		if !sleepWithContext(ctx, wait) {
			return ctx.Err()
		}
	}
}

func (p *poster) postOnce(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.timing.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(reqCtx, http.MethodPost, p.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", p.channelName, err)
	}
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("%s request failed: %w", p.channelName, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	bodyText := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		wait, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return &transientError{
			retryAfter: wait,
			err:        fmt.Errorf("%s rate limited: %s", p.channelName, resp.Status),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &transientError{err: fmt.Errorf("%s server error: %s", p.channelName, resp.Status)}
	case bodyText != "":
		return fmt.Errorf("%s request failed: %s (%s)", p.channelName, resp.Status, bodyText)
	default:
		return fmt.Errorf("%s request failed: %s", p.channelName, resp.Status)
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		wait := time.Until(when)
		if wait <= 0 {
			return 0, false
		}
		return wait, true
	}
	return 0, false
}

func sleepWithContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// transientError marks a delivery failure worth retrying. A positive
// retryAfter overrides the backoff schedule for the next wait.
type transientError struct {
	retryAfter time.Duration
	err        error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}
