package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/opsforge/warden/internal/backup"
	"github.com/opsforge/warden/internal/config"
	"github.com/opsforge/warden/internal/healthcheck"
	"github.com/opsforge/warden/internal/metrics"
	"github.com/opsforge/warden/internal/notify"
	"github.com/opsforge/warden/internal/probe"
	"github.com/opsforge/warden/internal/registry"
	"github.com/opsforge/warden/internal/report"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Per-service recovery outcomes.
const (
	StatusRecovered = "recovered"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
)

// Result is the outcome of one recovery run.
type Result struct {
	Session    string
	Disaster   string
	StartedAt  time.Time
	EndedAt    time.Time
	Assessment Assessment
	Plan       Plan
	Results    []report.ServiceResult
	Succeeded  bool
}

// Orchestrator executes a recovery plan wave by wave. Within a wave every
// service's action runs concurrently, bounded by its own RTO; the wave is
// joined in full before its verification gate runs. A failed wave does not
// stop later waves: recovery is best-effort and partial success is reported,
// not discarded.
type Orchestrator struct {
	logger     zerolog.Logger
	cfg        config.Recovery
	assessor   *Assessor
	checker    Checker
	runner     ActionRunner
	backups    backup.Store
	dispatcher *notify.Dispatcher
	sink       report.Sink
	tracker    *healthcheck.Tracker
	collector  *metrics.Metrics
	now        func() time.Time
}

// OrchestratorOption customizes Orchestrator behavior.
type OrchestratorOption func(*Orchestrator)

// WithBackups enables RPO reporting against the snapshot store.
func WithBackups(store backup.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		o.backups = store
	}
}

// WithTracker reports run progress to the health endpoints.
func WithTracker(tracker *healthcheck.Tracker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracker = tracker
	}
}

// WithMetrics records phase durations and per-service outcomes.
func WithMetrics(collector *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.collector = collector
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator constructs an Orchestrator over the given collaborators.
func NewOrchestrator(logger zerolog.Logger, cfg config.Recovery, checker Checker, runner ActionRunner, dispatcher *notify.Dispatcher, sink report.Sink, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		logger:     logger,
		cfg:        cfg,
		checker:    checker,
		runner:     runner,
		dispatcher: dispatcher,
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dispatcher == nil {
		o.dispatcher = notify.NewDispatcher(logger, nil)
	}
	o.assessor = NewAssessor(logger, checker)
	o.assessor.now = o.now
	return o
}

// Execute assesses the disaster, plans recovery, and drives the plan to
// completion. The returned error is non-nil when any phase failed.
func (o *Orchestrator) Execute(ctx context.Context, reg *registry.Registry, disaster string, dryRun bool) (*Result, error) {
	startedAt := o.now().UTC()
	result := &Result{
		Session:   report.NewSessionID(report.KindRecovery, startedAt),
		Disaster:  disaster,
		StartedAt: startedAt,
	}

	o.logger.Info().
		Str("session", result.Session).
		Str("disaster", disaster).
		Bool("dry_run", dryRun).
		Msg("recovery starting")

	if dangling := reg.DanglingDependencies(); len(dangling) > 0 {
		o.logger.Warn().
			Strs("dependencies", dangling).
			Msg("registry references services outside itself, they will land in the final wave")
	}

	assessment, err := o.assessor.Assess(ctx, reg, disaster)
	if err != nil {
		return result, fmt.Errorf("disaster assessment: %w", err)
	}
	result.Assessment = assessment

	if len(assessment.Affected) == 0 {
		o.dispatch(ctx, result.Session, "recovery_summary", alert.SeverityInfo,
			fmt.Sprintf("recovery for %s: no affected services", disaster))
		result.Succeeded = true
		o.finish(ctx, result, nil)
		return result, nil
	}

	plan, err := BuildPlan(reg, assessment.AffectedIDs())
	if err != nil {
		return result, fmt.Errorf("recovery planning: %w", err)
	}
	result.Plan = plan

	o.dispatch(ctx, result.Session, "recovery_plan", alert.SeverityInfo,
		fmt.Sprintf("recovery plan for %s: %d services in %d waves, estimated %s",
			disaster, plan.TotalServices, len(plan.Phases), plan.EstimatedDuration))

	if dryRun {
		result.Succeeded = true
		o.finish(ctx, result, o.planRecommendations(plan))
		return result, nil
	}

	for i := range result.Plan.Phases {
		o.runPhase(ctx, result, &result.Plan.Phases[i])
	}

	failedPhases := 0
	for _, phase := range result.Plan.Phases {
		if phase.Status != PhaseVerified {
			failedPhases++
		}
	}
	result.Succeeded = failedPhases == 0

	recommendations := o.buildRecommendations(ctx, result)
	summary := fmt.Sprintf("recovery for %s complete: %d/%d waves verified",
		disaster, len(result.Plan.Phases)-failedPhases, len(result.Plan.Phases))
	severity := alert.SeverityInfo
	if !result.Succeeded {
		severity = alert.SeverityCritical
		summary = fmt.Sprintf("recovery for %s finished with failures: %d of %d waves unverified",
			disaster, failedPhases, len(result.Plan.Phases))
	}
	o.dispatch(ctx, result.Session, "recovery_summary", severity, summary)

	o.finish(ctx, result, recommendations)

	if !result.Succeeded {
		return result, fmt.Errorf("recovery %s: %d of %d waves failed verification",
			result.Session, failedPhases, len(result.Plan.Phases))
	}
	o.collector.SetLastSuccessfulRun("recovery", o.now())
	return result, nil
}

// runPhase launches every service action in the wave concurrently, joins all
// of them, then runs the verification gate. Verification for the next wave
// can only start after this returns.
func (o *Orchestrator) runPhase(ctx context.Context, result *Result, phase *Phase) {
	phase.Status = PhaseRunning
	phase.StartedAt = o.now().UTC()
	o.tracker.RecordProgress("recovery", fmt.Sprintf("phase-%d", phase.Index), phase.StartedAt.Sub(result.StartedAt))
	o.dispatch(ctx, result.Session, "recovery_phase", alert.SeverityInfo,
		fmt.Sprintf("wave %d starting: %d services", phase.Index, len(phase.Services)))

	outcomes := make([]report.ServiceResult, len(phase.Services))
	var g errgroup.Group
	for i, svc := range phase.Services {
		i, svc := i, svc
		g.Go(func() error {
			outcomes[i] = o.recoverService(ctx, result.Session, svc, phase.Index)
			return nil
		})
	}
	_ = g.Wait()

	unverified := o.verifyPhase(ctx, phase, outcomes)
	result.Results = append(result.Results, outcomes...)

	phase.CompletedAt = o.now().UTC()
	o.collector.ObserveRecoveryPhaseDuration(phase.CompletedAt.Sub(phase.StartedAt))

	if len(unverified) == 0 {
		phase.Status = PhaseVerified
		o.dispatch(ctx, result.Session, "recovery_phase", alert.SeverityInfo,
			fmt.Sprintf("wave %d verified", phase.Index))
		return
	}
	phase.Status = PhaseFailed
	o.dispatch(ctx, result.Session, "recovery_phase", alert.SeverityWarning,
		fmt.Sprintf("wave %d failed verification: %s", phase.Index, strings.Join(unverified, ", ")))
}

// recoverService runs one action bounded by the service's own RTO. A timeout
// marks the service failed without affecting siblings in the wave.
func (o *Orchestrator) recoverService(ctx context.Context, session string, svc registry.ServiceNode, phaseIndex int) report.ServiceResult {
	started := o.now()
	runCtx, cancel := context.WithTimeout(ctx, svc.RTO)
	defer cancel()

	err := o.runner.Recover(runCtx, svc)
	duration := o.now().Sub(started)

	outcome := report.ServiceResult{
		Service:         svc.ID,
		Phase:           phaseIndex,
		DurationSeconds: duration.Seconds(),
		RTOSeconds:      svc.RTO.Seconds(),
		RTOMet:          duration <= svc.RTO,
	}

	switch {
	case err == nil:
		outcome.Status = StatusRecovered
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome.Status = StatusTimedOut
		outcome.Detail = fmt.Sprintf("recovery exceeded rto %s", svc.RTO)
		o.dispatch(ctx, session, "recovery_service", alert.SeverityHigh,
			fmt.Sprintf("service %s exceeded its rto of %s", svc.ID, svc.RTO))
	default:
		outcome.Status = StatusFailed
		outcome.Detail = err.Error()
		o.dispatch(ctx, session, "recovery_service", alert.SeverityWarning,
			fmt.Sprintf("service %s recovery action failed: %v", svc.ID, err))
	}

	o.collector.IncServicesRecovered(outcome.Status)
	return outcome
}

// verifyPhase polls every service's health check with bounded retries and
// returns the ids that never came back healthy.
func (o *Orchestrator) verifyPhase(ctx context.Context, phase *Phase, outcomes []report.ServiceResult) []string {
	policy := probe.Policy{Attempts: o.cfg.VerifyAttempts, Interval: o.cfg.VerifyInterval}
	failed := make([]bool, len(phase.Services))

	var g errgroup.Group
	for i, svc := range phase.Services {
		i, svc := i, svc
		g.Go(func() error {
			if err := o.checker.WaitHealthy(ctx, svc.HealthCheck, policy); err != nil {
				o.logger.Warn().
					Err(err).
					Str("service", svc.ID).
					Int("wave", phase.Index).
					Msg("verification gate failed")
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	var unverified []string
	for i, svc := range phase.Services {
		if !failed[i] {
			continue
		}
		unverified = append(unverified, svc.ID)
		if outcomes[i].Status == StatusRecovered {
			outcomes[i].Status = StatusFailed
			outcomes[i].Detail = "health verification failed"
		}
	}
	return unverified
}

func (o *Orchestrator) buildRecommendations(ctx context.Context, result *Result) []string {
	var recs []string
	for _, outcome := range result.Results {
		if outcome.Status == StatusTimedOut {
			recs = append(recs, fmt.Sprintf("service %s exceeded its rto of %.0fs, raise the objective or speed up its recovery action", outcome.Service, outcome.RTOSeconds))
		}
	}
	for _, phase := range result.Plan.Phases {
		if phase.Status == PhaseFailed {
			recs = append(recs, fmt.Sprintf("wave %d failed verification, inspect its services before the next drill", phase.Index))
		}
	}
	recs = append(recs, o.rpoRecommendations(ctx, result.Assessment.Affected)...)
	return recs
}

// rpoRecommendations flags stale or missing snapshots for stateful services.
// Violations are surfaced in the report, never treated as failures.
func (o *Orchestrator) rpoRecommendations(ctx context.Context, affected []registry.ServiceNode) []string {
	if o.backups == nil {
		return nil
	}
	var recs []string
	now := o.now()
	for _, svc := range affected {
		if !svc.Stateful {
			continue
		}
		meta, err := o.backups.Latest(ctx, svc.ID)
		if errors.Is(err, backup.ErrNoSnapshot) {
			recs = append(recs, fmt.Sprintf("stateful service %s has no snapshot", svc.ID))
			continue
		}
		if err != nil {
			o.logger.Warn().Err(err).Str("service", svc.ID).Msg("snapshot lookup failed")
			continue
		}
		if age := meta.Age(now); age > svc.RPO {
			recs = append(recs, fmt.Sprintf("service %s snapshot is %s old, beyond its rpo of %s", svc.ID, age.Round(time.Second), svc.RPO))
		}
	}
	return recs
}

func (o *Orchestrator) planRecommendations(plan Plan) []string {
	var lines []string
	for _, phase := range plan.Phases {
		ids := make([]string, 0, len(phase.Services))
		for _, svc := range phase.Services {
			ids = append(ids, svc.ID)
		}
		lines = append(lines, fmt.Sprintf("wave %d: %s", phase.Index, strings.Join(ids, ", ")))
	}
	return lines
}

func (o *Orchestrator) dispatch(ctx context.Context, session, alertType string, severity alert.Severity, message string) {
	o.dispatcher.Dispatch(ctx, alert.New(session, alertType, severity, message))
}

// finish writes the persisted run report.
func (o *Orchestrator) finish(ctx context.Context, result *Result, recommendations []string) {
	result.EndedAt = o.now().UTC()
	if o.sink == nil {
		return
	}

	rep := report.Report{
		Session: report.Session{
			ID:        result.Session,
			Kind:      report.KindRecovery,
			Disaster:  result.Disaster,
			StartedAt: result.StartedAt,
			EndedAt:   result.EndedAt,
		},
		Assessment: &report.Assessment{
			Disaster:            result.Assessment.Disaster,
			AssessedAt:          result.Assessment.AssessedAt,
			AffectedServices:    result.Assessment.AffectedIDs(),
			HealthyServices:     result.Assessment.Healthy,
			RegistryFingerprint: result.Assessment.Fingerprint,
		},
		Results:         result.Results,
		Performance:     report.NewPerformance(result.EndedAt.Sub(result.StartedAt), result.Plan.EstimatedDuration),
		Recommendations: recommendations,
		Events:          o.dispatcher.Events(),
	}
	if err := o.sink.Write(ctx, rep); err != nil {
		o.logger.Error().Err(err).Msg("writing recovery report failed")
	}
}
