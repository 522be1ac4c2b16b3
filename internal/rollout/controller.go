package rollout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/opsforge/warden/internal/config"
	"github.com/opsforge/warden/internal/healthcheck"
	"github.com/opsforge/warden/internal/metrics"
	"github.com/opsforge/warden/internal/metricsquery"
	"github.com/opsforge/warden/internal/notify"
	"github.com/opsforge/warden/internal/platform"
	"github.com/opsforge/warden/internal/probe"
	"github.com/opsforge/warden/internal/registry"
	"github.com/opsforge/warden/internal/report"
	"github.com/opsforge/warden/internal/state"
	"github.com/opsforge/warden/internal/traffic"
	"github.com/rs/zerolog"
)

// verifySuccessGate is the minimum success ratio for post-flip traffic
// verification.
const verifySuccessGate = 0.9

// ConfirmFunc asks the operator to approve a promotion.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Controller drives the rollout state machine for one environment at a time.
// Concurrent runs against the same environment must be serialized by the
// caller.
type Controller struct {
	logger        zerolog.Logger
	cfg           config.Rollout
	platform      platform.Client
	splitter      *traffic.Splitter
	evaluator     metricsquery.Evaluator
	prober        *probe.Prober
	dispatcher    *notify.Dispatcher
	store         state.Store
	sink          report.Sink
	services      *registry.Registry
	tracker       *healthcheck.Tracker
	collector     *metrics.Metrics
	confirm       ConfirmFunc
	now           func() time.Time
	tickerFactory func(time.Duration) Ticker
}

// Option customizes Controller behavior.
type Option func(*Controller)

// WithTickerFactory overrides how monitoring tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(c *Controller) {
		c.tickerFactory = factory
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithConfirm sets the operator confirmation hook for manual promotions.
func WithConfirm(confirm ConfirmFunc) Option {
	return func(c *Controller) {
		c.confirm = confirm
	}
}

// WithRegistry enables per-sub-service health checking for blue-green runs.
func WithRegistry(services *registry.Registry) Option {
	return func(c *Controller) {
		c.services = services
	}
}

// WithTracker reports run progress to the health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(c *Controller) {
		c.tracker = tracker
	}
}

// WithMetrics records transitions and run outcomes.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(c *Controller) {
		c.collector = collector
	}
}

// New constructs a Controller over the given collaborators.
func New(logger zerolog.Logger, cfg config.Rollout, client platform.Client, splitter *traffic.Splitter, evaluator metricsquery.Evaluator, prober *probe.Prober, dispatcher *notify.Dispatcher, store state.Store, sink report.Sink, opts ...Option) *Controller {
	c := &Controller{
		logger:     logger,
		cfg:        cfg,
		platform:   client,
		splitter:   splitter,
		evaluator:  evaluator,
		prober:     prober,
		dispatcher: dispatcher,
		store:      store,
		sink:       sink,
		now:        time.Now,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dispatcher == nil {
		c.dispatcher = notify.NewDispatcher(logger, nil)
	}
	return c
}

// Execute runs one rollout to a terminal state. The returned Run is always
// non-nil once params validate; a non-nil error means the run ended Failed.
func (c *Controller) Execute(ctx context.Context, p Params) (*Run, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("rollout params: %w", err)
	}

	startedAt := c.now().UTC()
	r := &Run{
		Params:    p,
		Session:   report.NewSessionID(report.KindRollout, startedAt),
		StartedAt: startedAt,
		estimated: c.estimateDuration(p),
	}

	c.logger.Info().
		Str("session", r.Session).
		Str("environment", p.Environment).
		Str("strategy", string(p.Strategy)).
		Str("version", p.Version).
		Bool("dry_run", p.DryRun).
		Msg("rollout starting")

	if p.DryRun {
		return r, c.dryRun(ctx, r)
	}

	c.transition(ctx, r, StateInit)

	if err := c.captureLastKnownGood(ctx, r); err != nil {
		return r, c.fail(ctx, r, err)
	}

	if err := c.runGuarded(ctx, r); err != nil || r.state != StateCompleted {
		return r, c.fail(ctx, r, err)
	}

	c.collector.SetLastSuccessfulRun("rollout", c.now())
	c.writeReport(ctx, r)
	return r, nil
}

// runGuarded executes the Deploying..Promoting span. Rollback is the
// guaranteed cleanup for this span: it fires on every exit path that is not
// Completed, including cancellation and panics, on a cancellation-immune
// context.
func (c *Controller) runGuarded(ctx context.Context, r *Run) (err error) {
	defer func() {
		if r.state == StateCompleted {
			return
		}
		c.rollback(context.WithoutCancel(ctx), r)
	}()

	switch r.Params.Strategy {
	case StrategyCanary:
		err = c.runCanary(ctx, r)
	case StrategyBlueGreen:
		err = c.runBlueGreen(ctx, r)
	default:
		err = c.runRolling(ctx, r)
	}
	if err != nil {
		return err
	}
	return c.Promote(ctx, r)
}

func (c *Controller) runCanary(ctx context.Context, r *Run) error {
	c.transition(ctx, r, StateDeploying)
	env := r.Params.Environment

	status, err := c.platform.Status(ctx, env, DeploymentStable)
	if err != nil {
		return fmt.Errorf("stable deployment status: %w", err)
	}
	if status.DesiredReplicas < 1 {
		return fmt.Errorf("stable deployment in %s has no replicas", env)
	}
	r.totalReplicas = status.DesiredReplicas
	r.canaryReplicas = CanaryReplicas(r.totalReplicas, r.Params.CanaryPercentage)

	if err := c.platform.Deploy(ctx, platform.Deployment{
		Environment: env,
		Name:        DeploymentCanary,
		Version:     r.Params.Version,
		Replicas:    r.canaryReplicas,
	}); err != nil {
		return fmt.Errorf("deploy canary: %w", err)
	}

	c.transition(ctx, r, StateHealthChecking)
	policy := probe.Policy{Attempts: c.cfg.HealthCheckAttempts, Interval: c.cfg.HealthCheckInterval}
	if err := c.prober.WaitReady(ctx, env, DeploymentCanary, policy); err != nil {
		return fmt.Errorf("canary readiness: %w", err)
	}

	pct := r.Params.CanaryPercentage
	if err := c.splitter.Set(ctx, env, traffic.Assignment{
		DeploymentStable: 100 - pct,
		DeploymentCanary: pct,
	}); err != nil {
		return err
	}

	c.transition(ctx, r, StateMonitoring)
	return c.monitorCanary(ctx, r)
}

// monitorCanary drives the fixed-interval monitoring loop until the canary
// duration elapses or a breach is observed. The ticker makes the loop
// cancellable mid-interval.
func (c *Controller) monitorCanary(ctx context.Context, r *Run) error {
	deadline := c.now().Add(c.cfg.CanaryDuration)
	ticker := c.tickerFactory(c.cfg.MonitorInterval)
	defer ticker.Stop()

	consecutiveMisses := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if !c.now().Before(deadline) {
				return nil
			}
			if err := c.checkCanaryTick(ctx, r, &consecutiveMisses); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) checkCanaryTick(ctx context.Context, r *Run, misses *int) error {
	env := r.Params.Environment

	obs, err := c.evaluator.Evaluate(ctx, metricsquery.Query{
		Environment: env,
		Deployment:  DeploymentCanary,
		Kind:        metricsquery.KindErrorRate,
		Window:      c.cfg.MonitorInterval,
		Threshold:   c.cfg.RollbackThreshold,
	})
	switch {
	case errors.Is(err, metricsquery.ErrBackendUnavailable):
		*misses++
		c.logger.Warn().
			Int("consecutive", *misses).
			Int("budget", c.cfg.MetricsFailureBudget).
			Msg("error-rate query unavailable")
		if *misses >= c.cfg.MetricsFailureBudget {
			return &breachError{reason: fmt.Sprintf("metrics backend unavailable for %d consecutive ticks", *misses)}
		}
	case err != nil:
		return fmt.Errorf("error-rate query: %w", err)
	default:
		*misses = 0
		if !obs.Pass {
			return &breachError{reason: fmt.Sprintf("error rate %.2f%% exceeds threshold %.2f%%", obs.Value, obs.Threshold)}
		}
	}

	if r.Params.LatencyThreshold > 0 {
		latency, err := c.evaluator.Evaluate(ctx, metricsquery.Query{
			Environment: env,
			Deployment:  DeploymentCanary,
			Kind:        metricsquery.KindLatencyP95,
			Window:      c.cfg.MonitorInterval,
			Threshold:   r.Params.LatencyThreshold,
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("latency query failed")
		} else if !latency.Pass || latency.Degraded {
			c.logger.Warn().
				Float64("p95_ms", latency.Value).
				Float64("threshold_ms", latency.Threshold).
				Bool("degraded", latency.Degraded).
				Msg("latency probe flagged")
		}
	}

	status, err := c.platform.Status(ctx, env, DeploymentCanary)
	if err != nil {
		return fmt.Errorf("canary status: %w", err)
	}
	if !status.AllPodsRunning() {
		return &breachError{reason: "canary has non-running pods"}
	}
	return nil
}

func (c *Controller) runBlueGreen(ctx context.Context, r *Run) error {
	c.transition(ctx, r, StateDeploying)
	env := r.Params.Environment

	active := r.lastGood.ActiveSlot
	if active == "" {
		slot, err := c.platform.ActiveSlot(ctx, env)
		if err != nil {
			return fmt.Errorf("active slot: %w", err)
		}
		active = slot
	}
	r.activeSlot = active
	r.targetSlot = OppositeSlot(active)

	replicas := 1
	if status, err := c.platform.Status(ctx, env, active); err == nil && status.DesiredReplicas > 0 {
		replicas = status.DesiredReplicas
	}

	c.logger.Info().
		Str("active_slot", r.activeSlot).
		Str("target_slot", r.targetSlot).
		Int("replicas", replicas).
		Msg("deploying candidate slot")

	if err := c.platform.Deploy(ctx, platform.Deployment{
		Environment: env,
		Name:        r.targetSlot,
		Version:     r.Params.Version,
		Replicas:    replicas,
	}); err != nil {
		return fmt.Errorf("deploy %s slot: %w", r.targetSlot, err)
	}

	attempts := int(c.cfg.ReadyTimeout / c.cfg.HealthCheckInterval)
	if attempts < 1 {
		attempts = 1
	}
	readyCtx, cancel := context.WithTimeout(ctx, c.cfg.ReadyTimeout)
	defer cancel()
	if err := c.prober.WaitReady(readyCtx, env, r.targetSlot, probe.Policy{Attempts: attempts, Interval: c.cfg.HealthCheckInterval}); err != nil {
		return fmt.Errorf("%s slot not ready within %s: %w", r.targetSlot, c.cfg.ReadyTimeout, err)
	}

	c.transition(ctx, r, StateHealthChecking)
	policy := probe.Policy{Attempts: c.cfg.HealthCheckAttempts, Interval: c.cfg.HealthCheckInterval}
	for _, svc := range c.subServices(env) {
		if err := c.prober.WaitHealthy(ctx, svc.HealthCheck, policy); err != nil {
			return fmt.Errorf("sub-service %s health: %w", svc.ID, err)
		}
	}
	return nil
}

func (c *Controller) runRolling(ctx context.Context, r *Run) error {
	c.transition(ctx, r, StateDeploying)
	env := r.Params.Environment

	status, err := c.platform.Status(ctx, env, DeploymentStable)
	if err != nil {
		return fmt.Errorf("stable deployment status: %w", err)
	}
	replicas := status.DesiredReplicas
	if replicas < 1 {
		replicas = 1
	}
	r.totalReplicas = replicas

	if err := c.platform.Deploy(ctx, platform.Deployment{
		Environment: env,
		Name:        DeploymentStable,
		Version:     r.Params.Version,
		Replicas:    replicas,
	}); err != nil {
		return fmt.Errorf("rolling update: %w", err)
	}

	c.transition(ctx, r, StateHealthChecking)
	policy := probe.Policy{Attempts: c.cfg.HealthCheckAttempts, Interval: c.cfg.HealthCheckInterval}
	if err := c.prober.WaitReady(ctx, env, DeploymentStable, policy); err != nil {
		return fmt.Errorf("stable readiness: %w", err)
	}
	return nil
}

// Promote advances the run through its promotion step. Calling it on a run
// already in a terminal state is a no-op and never re-triggers traffic
// changes.
func (c *Controller) Promote(ctx context.Context, r *Run) error {
	if r.state.Terminal() {
		c.logger.Debug().
			Str("session", r.Session).
			Str("state", string(r.state)).
			Msg("promotion skipped, run already terminal")
		return nil
	}

	c.transition(ctx, r, StatePromoting)

	if r.Params.ManualPromotion {
		if c.confirm == nil {
			return errors.New("manual promotion requested but no confirmer configured")
		}
		ok, err := c.confirm(ctx, fmt.Sprintf("promote %s %s in %s?", r.Params.Strategy, r.Params.Version, r.Params.Environment))
		if err != nil {
			return fmt.Errorf("promotion confirmation: %w", err)
		}
		if !ok {
			return errPromotionDeclined
		}
	}

	var err error
	switch r.Params.Strategy {
	case StrategyCanary:
		err = c.promoteCanary(ctx, r)
	case StrategyBlueGreen:
		err = c.promoteBlueGreen(ctx, r)
	default:
		err = c.promoteRolling(ctx, r)
	}
	if err != nil {
		return err
	}

	if err := c.recordLastKnownGood(ctx, r); err != nil {
		c.logger.Warn().Err(err).Msg("persisting last-known-good target failed")
	}
	c.transition(ctx, r, StateCompleted)
	return nil
}

func (c *Controller) promoteCanary(ctx context.Context, r *Run) error {
	env := r.Params.Environment

	if err := c.platform.Deploy(ctx, platform.Deployment{
		Environment: env,
		Name:        DeploymentStable,
		Version:     r.Params.Version,
		Replicas:    r.totalReplicas,
	}); err != nil {
		return fmt.Errorf("update stable deployment: %w", err)
	}
	policy := probe.Policy{Attempts: c.cfg.HealthCheckAttempts, Interval: c.cfg.HealthCheckInterval}
	if err := c.prober.WaitReady(ctx, env, DeploymentStable, policy); err != nil {
		return fmt.Errorf("stable readiness: %w", err)
	}
	if err := c.splitter.Set(ctx, env, traffic.Assignment{DeploymentStable: 100, DeploymentCanary: 0}); err != nil {
		return err
	}
	if err := c.platform.Delete(ctx, env, DeploymentCanary); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return fmt.Errorf("delete canary: %w", err)
	}
	return nil
}

func (c *Controller) promoteBlueGreen(ctx context.Context, r *Run) error {
	if err := c.platform.SetActiveSlot(ctx, r.Params.Environment, r.targetSlot); err != nil {
		return fmt.Errorf("flip active slot: %w", err)
	}
	return c.verifyTraffic(ctx, r)
}

func (c *Controller) promoteRolling(ctx context.Context, r *Run) error {
	return c.splitter.Set(ctx, r.Params.Environment, traffic.Assignment{DeploymentStable: 100})
}

// verifyTraffic samples the public endpoint after a slot flip and requires
// at least 90% success.
func (c *Controller) verifyTraffic(ctx context.Context, r *Run) error {
	samples := c.cfg.VerifySamples
	successes := 0
	for i := 0; i < samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.VerifyInterval):
			}
		}
		if err := c.platform.ProbeEndpoint(ctx, r.Params.Environment); err != nil {
			c.logger.Debug().Err(err).Int("sample", i+1).Msg("endpoint sample failed")
			continue
		}
		successes++
	}

	ratio := float64(successes) / float64(samples)
	c.logger.Info().
		Int("successes", successes).
		Int("samples", samples).
		Msg("traffic verification sampled")
	if ratio < verifySuccessGate {
		return &breachError{reason: fmt.Sprintf("traffic verification %d/%d below %.0f%% gate", successes, samples, verifySuccessGate*100)}
	}
	return nil
}

// rollback restores the last-known-good routing and removes the candidate's
// resources.
func (c *Controller) rollback(ctx context.Context, r *Run) {
	c.transition(ctx, r, StateRollingBack)
	env := r.Params.Environment

	switch r.Params.Strategy {
	case StrategyBlueGreen:
		if r.lastGood.ActiveSlot != "" {
			if err := c.platform.SetActiveSlot(ctx, env, r.lastGood.ActiveSlot); err != nil {
				c.logger.Error().Err(err).Str("slot", r.lastGood.ActiveSlot).Msg("restoring active slot failed")
			}
		}
		if r.targetSlot != "" {
			if err := c.platform.Delete(ctx, env, r.targetSlot); err != nil && !errors.Is(err, platform.ErrNotFound) {
				c.logger.Error().Err(err).Str("slot", r.targetSlot).Msg("deleting candidate slot failed")
			}
		}
	default:
		weights := traffic.Assignment{DeploymentStable: 100, DeploymentCanary: 0}
		if len(r.lastGood.Weights) > 0 {
			weights = traffic.Assignment{}
			for name, weight := range r.lastGood.Weights {
				weights[name] = weight
			}
			if _, ok := weights[DeploymentCanary]; !ok {
				weights[DeploymentCanary] = 0
			}
		}
		if err := c.splitter.Set(ctx, env, weights); err != nil {
			c.logger.Error().Err(err).Msg("restoring traffic weights failed")
		}
		if err := c.platform.Delete(ctx, env, DeploymentCanary); err != nil && !errors.Is(err, platform.ErrNotFound) {
			c.logger.Error().Err(err).Msg("deleting canary deployment failed")
		}
	}
}

// captureLastKnownGood records the pre-rollout target so RollingBack always
// has something to restore, even on a fresh state file.
func (c *Controller) captureLastKnownGood(ctx context.Context, r *Run) error {
	loaded, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	env := r.Params.Environment
	if target, ok := loaded.LastKnownGood(env); ok {
		r.lastGood = target
		return nil
	}

	target := state.Target{Environment: env, RecordedAt: c.now().UTC()}
	switch r.Params.Strategy {
	case StrategyBlueGreen:
		slot, err := c.platform.ActiveSlot(ctx, env)
		if err != nil {
			return fmt.Errorf("active slot: %w", err)
		}
		target.ActiveSlot = slot
		if status, err := c.platform.Status(ctx, env, slot); err == nil {
			target.Version = status.Version
		}
	default:
		status, err := c.platform.Status(ctx, env, DeploymentStable)
		if err != nil {
			return fmt.Errorf("stable deployment status: %w", err)
		}
		target.Version = status.Version
		target.Weights = map[string]int{DeploymentStable: 100}
	}
	r.lastGood = target

	if loaded.Targets == nil {
		loaded.Targets = map[string]state.Target{}
	}
	loaded.Targets[env] = target
	if err := c.store.Save(ctx, loaded); err != nil {
		c.logger.Warn().Err(err).Msg("persisting last-known-good target failed")
	}
	return nil
}

func (c *Controller) recordLastKnownGood(ctx context.Context, r *Run) error {
	loaded, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	if loaded.Targets == nil {
		loaded.Targets = map[string]state.Target{}
	}

	target := state.Target{
		Environment: r.Params.Environment,
		Version:     r.Params.Version,
		RecordedAt:  c.now().UTC(),
	}
	switch r.Params.Strategy {
	case StrategyBlueGreen:
		target.ActiveSlot = r.targetSlot
	default:
		target.Weights = map[string]int{DeploymentStable: 100}
	}
	loaded.Targets[r.Params.Environment] = target
	return c.store.Save(ctx, loaded)
}

// transition moves the run to the next state and emits exactly one alert.
func (c *Controller) transition(ctx context.Context, r *Run, next State) {
	r.state = next
	c.collector.IncRolloutTransition(r.Params.Environment, string(next))
	c.tracker.RecordProgress("rollout", string(next), c.now().Sub(r.StartedAt))

	message := fmt.Sprintf("rollout %s in %s: %s %s", next, r.Params.Environment, r.Params.Strategy, r.Params.Version)
	c.dispatcher.Dispatch(ctx, alert.New(r.Session, "rollout_transition", severityFor(next), message))
}

func (c *Controller) fail(ctx context.Context, r *Run, cause error) error {
	reason := "run ended before completion"
	if cause != nil {
		reason = cause.Error()
	}
	r.recommendations = append(r.recommendations,
		fmt.Sprintf("investigate %s rollout of %s in %s: %s", r.Params.Strategy, r.Params.Version, r.Params.Environment, reason))
	c.transition(ctx, r, StateFailed)
	c.writeReport(ctx, r)
	return &RunError{Session: r.Session, Reason: reason}
}

func (c *Controller) writeReport(ctx context.Context, r *Run) {
	if c.sink == nil {
		return
	}
	endedAt := c.now().UTC()
	rep := report.Report{
		Session: report.Session{
			ID:          r.Session,
			Kind:        report.KindRollout,
			Environment: r.Params.Environment,
			StartedAt:   r.StartedAt,
			EndedAt:     endedAt,
		},
		Performance:     report.NewPerformance(endedAt.Sub(r.StartedAt), r.estimated),
		Recommendations: r.recommendations,
		Events:          c.dispatcher.Events(),
	}
	if err := c.sink.Write(ctx, rep); err != nil {
		c.logger.Error().Err(err).Msg("writing rollout report failed")
	}
}

// dryRun reports the plan that would execute without touching the platform.
func (c *Controller) dryRun(ctx context.Context, r *Run) error {
	plan := c.planLines(r)
	for _, line := range plan {
		c.logger.Info().Str("session", r.Session).Msg("dry-run: " + line)
	}
	c.dispatcher.Dispatch(ctx, alert.New(r.Session, "rollout_plan", alert.SeverityInfo,
		fmt.Sprintf("dry-run plan for %s %s in %s: %d steps", r.Params.Strategy, r.Params.Version, r.Params.Environment, len(plan))))
	r.recommendations = plan
	r.state = StateCompleted
	c.writeReport(ctx, r)
	return nil
}

func (c *Controller) planLines(r *Run) []string {
	env := r.Params.Environment
	switch r.Params.Strategy {
	case StrategyCanary:
		return []string{
			fmt.Sprintf("deploy canary of %s at %d%% of stable replicas in %s", r.Params.Version, r.Params.CanaryPercentage, env),
			fmt.Sprintf("shift %d%% of traffic to the canary", r.Params.CanaryPercentage),
			fmt.Sprintf("monitor error rate against %.1f%% threshold for %s", c.cfg.RollbackThreshold, c.cfg.CanaryDuration),
			"promote to stable and remove the canary, or roll back on breach",
		}
	case StrategyBlueGreen:
		return []string{
			fmt.Sprintf("deploy %s to the inactive slot in %s", r.Params.Version, env),
			fmt.Sprintf("health-check sub-services up to %d times, %s apart", c.cfg.HealthCheckAttempts, c.cfg.HealthCheckInterval),
			fmt.Sprintf("flip routing and verify %d endpoint samples", c.cfg.VerifySamples),
			"keep the new slot active, or flip back on a failed gate",
		}
	default:
		return []string{fmt.Sprintf("rolling update of stable to %s in %s", r.Params.Version, env)}
	}
}

func (c *Controller) estimateDuration(p Params) time.Duration {
	base := c.cfg.ReadyTimeout + time.Duration(c.cfg.HealthCheckAttempts)*c.cfg.HealthCheckInterval
	switch p.Strategy {
	case StrategyCanary:
		return base + c.cfg.CanaryDuration
	case StrategyBlueGreen:
		return base + time.Duration(c.cfg.VerifySamples)*c.cfg.VerifyInterval
	default:
		return base
	}
}

func (c *Controller) subServices(env string) []registry.ServiceNode {
	if c.services == nil {
		return nil
	}
	return c.services.ServicesForEnvironment(env)
}
