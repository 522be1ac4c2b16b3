package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/opsforge/warden/internal/platform"
	"github.com/rs/zerolog"
)

const defaultProbeTimeout = 10 * time.Second

// Policy bounds a retry loop: up to Attempts checks, Interval apart.
type Policy struct {
	Attempts int
	Interval time.Duration
}

func (p Policy) validate() error {
	if p.Attempts <= 0 {
		return errors.New("probe attempts must be greater than zero")
	}
	if p.Interval <= 0 {
		return errors.New("probe interval must be greater than zero")
	}
	return nil
}

// Prober answers readiness questions about deployments and probe specs.
//
// A probe spec is either an http(s) URL checked with a GET, or a
// "platform://<environment>/<deployment>" reference checked through the
// workload platform.
type Prober struct {
	logger   zerolog.Logger
	platform platform.Client
	httpDoer *http.Client
}

// Option customizes Prober behavior.
type Option func(*Prober)

// WithHTTPClient overrides the HTTP client used for URL probes.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.httpDoer = client
	}
}

// New constructs a Prober over the given platform client.
func New(logger zerolog.Logger, client platform.Client, opts ...Option) *Prober {
	p := &Prober{
		logger:   logger,
		platform: client,
		httpDoer: &http.Client{Timeout: defaultProbeTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check runs a probe spec once.
func (p *Prober) Check(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return errors.New("probe spec must not be empty")
	}

	parsed, err := url.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid probe spec %q: %w", spec, err)
	}

	switch parsed.Scheme {
	case "http", "https":
		return p.checkURL(ctx, spec)
	case "platform":
		environment := parsed.Host
		name := strings.TrimPrefix(parsed.Path, "/")
		if environment == "" || name == "" {
			return fmt.Errorf("invalid platform probe spec %q", spec)
		}
		return p.checkDeployment(ctx, environment, name)
	default:
		return fmt.Errorf("unsupported probe scheme %q", parsed.Scheme)
	}
}

// WaitHealthy retries a probe spec under the given policy until it passes.
// Exhausting the attempts returns the last probe error.
func (p *Prober) WaitHealthy(ctx context.Context, spec string, policy Policy) error {
	if err := policy.validate(); err != nil {
		return err
	}
	return p.retry(ctx, policy, func() error {
		return p.Check(ctx, spec)
	})
}

// WaitReady retries until the platform reports the deployment ready.
func (p *Prober) WaitReady(ctx context.Context, environment, name string, policy Policy) error {
	if err := policy.validate(); err != nil {
		return err
	}
	return p.retry(ctx, policy, func() error {
		return p.checkDeployment(ctx, environment, name)
	})
}

func (p *Prober) retry(ctx context.Context, policy Policy, check func() error) error {
	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(policy.Attempts-1)),
		ctx,
	)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := check()
		if err != nil {
			p.logger.Debug().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", policy.Attempts).
				Msg("probe attempt failed")
		}
		return err
	}, schedule)
}

func (p *Prober) checkDeployment(ctx context.Context, environment, name string) error {
	status, err := p.platform.Status(ctx, environment, name)
	if err != nil {
		return fmt.Errorf("deployment status %s/%s: %w", environment, name, err)
	}
	if !status.Ready {
		return fmt.Errorf("deployment %s/%s not ready: %d/%d replicas running",
			environment, name, status.RunningReplicas, status.DesiredReplicas)
	}
	return nil
}

func (p *Prober) checkURL(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: status %d", target, resp.StatusCode)
	}
	return nil
}
