package recovery

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/opsforge/warden/internal/backup"
	"github.com/opsforge/warden/internal/config"
	"github.com/opsforge/warden/internal/notify"
	"github.com/opsforge/warden/internal/probe"
	"github.com/opsforge/warden/internal/registry"
	"github.com/opsforge/warden/internal/report"
	"github.com/rs/zerolog"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) indexOf(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeChecker struct {
	mu      sync.Mutex
	healthy map[string]bool
	rec     *recorder
}

func newFakeChecker(rec *recorder) *fakeChecker {
	return &fakeChecker{healthy: map[string]bool{}, rec: rec}
}

func (f *fakeChecker) markHealthy(spec string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy[spec] = true
}

func (f *fakeChecker) Check(_ context.Context, spec string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthy[spec] {
		return nil
	}
	return fmt.Errorf("probe %s failed", spec)
}

func (f *fakeChecker) WaitHealthy(_ context.Context, spec string, _ probe.Policy) error {
	if f.rec != nil {
		f.rec.add("verify:" + spec)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthy[spec] {
		return nil
	}
	return fmt.Errorf("probe %s failed", spec)
}

type fakeRunner struct {
	rec     *recorder
	checker *fakeChecker
	fail    map[string]bool
	block   map[string]bool
}

func (f *fakeRunner) Recover(ctx context.Context, svc registry.ServiceNode) error {
	if f.rec != nil {
		f.rec.add("recover:" + svc.ID)
	}
	if f.block[svc.ID] {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.fail[svc.ID] {
		return fmt.Errorf("action for %s exploded", svc.ID)
	}
	f.checker.markHealthy(svc.HealthCheck)
	return nil
}

type memSink struct {
	mu      sync.Mutex
	reports []report.Report
}

func (m *memSink) Write(_ context.Context, r report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memSink) last() (report.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return report.Report{}, false
	}
	return m.reports[len(m.reports)-1], true
}

type fakeBackups struct {
	metas map[string]backup.Meta
}

func (f *fakeBackups) Snapshot(context.Context, string, io.Reader) (backup.Meta, error) {
	return backup.Meta{}, nil
}

func (f *fakeBackups) Latest(_ context.Context, service string) (backup.Meta, error) {
	meta, ok := f.metas[service]
	if !ok {
		return backup.Meta{}, backup.ErrNoSnapshot
	}
	return meta, nil
}

func (f *fakeBackups) Open(ctx context.Context, service string) (io.ReadCloser, backup.Meta, error) {
	meta, err := f.Latest(ctx, service)
	if err != nil {
		return nil, backup.Meta{}, err
	}
	return io.NopCloser(strings.NewReader("")), meta, nil
}

type orchestratorHarness struct {
	rec        *recorder
	checker    *fakeChecker
	runner     *fakeRunner
	sink       *memSink
	dispatcher *notify.Dispatcher
	orch       *Orchestrator
}

func testRecoveryConfig() config.Recovery {
	return config.Recovery{VerifyAttempts: 2, VerifyInterval: time.Millisecond}
}

func newOrchestratorHarness(opts ...OrchestratorOption) *orchestratorHarness {
	logger := zerolog.Nop()
	h := &orchestratorHarness{
		rec:  &recorder{},
		sink: &memSink{},
	}
	h.checker = newFakeChecker(h.rec)
	h.runner = &fakeRunner{rec: h.rec, checker: h.checker, fail: map[string]bool{}, block: map[string]bool{}}
	h.dispatcher = notify.NewDispatcher(logger, notify.NewNoop(logger, "test"))
	h.orch = NewOrchestrator(logger, testRecoveryConfig(), h.checker, h.runner, h.dispatcher, h.sink, opts...)
	return h
}

func layeredRegistry() *registry.Registry {
	return reg(
		node("db", nil, time.Second),
		node("api", []string{"db"}, time.Second),
		node("web", []string{"db"}, time.Second),
	)
}

func hasEvent(events []alert.Alert, severity alert.Severity, substr string) bool {
	for _, a := range events {
		if a.Severity == severity && strings.Contains(a.Message, substr) {
			return true
		}
	}
	return false
}

func TestWaveJoinOrdering(t *testing.T) {
	h := newOrchestratorHarness()

	result, err := h.orch.Execute(context.Background(), layeredRegistry(), "regional-outage", false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("expected full recovery")
	}
	if len(result.Plan.Phases) != 2 {
		t.Fatalf("got %d waves, want 2", len(result.Plan.Phases))
	}

	// Wave 2 actions must not start before wave 1 is joined and verified.
	dbVerified := h.rec.indexOf("verify:check-db")
	if dbVerified < 0 {
		t.Fatal("db was never verified")
	}
	for _, event := range []string{"recover:api", "recover:web"} {
		if idx := h.rec.indexOf(event); idx < dbVerified {
			t.Fatalf("%s at %d started before wave 1 verification at %d\nevents: %v", event, idx, dbVerified, h.rec.list())
		}
	}
	for _, phase := range result.Plan.Phases {
		if phase.Status != PhaseVerified {
			t.Fatalf("wave %d status = %s, want Verified", phase.Index, phase.Status)
		}
	}
}

func TestBestEffortContinuesAfterFailedWave(t *testing.T) {
	h := newOrchestratorHarness()
	h.runner.fail["db"] = true

	result, err := h.orch.Execute(context.Background(), layeredRegistry(), "db-corruption", false)
	if err == nil {
		t.Fatal("expected overall failure")
	}
	if result.Succeeded {
		t.Fatal("run with a failed wave must not report success")
	}

	if got := result.Plan.Phases[0].Status; got != PhaseFailed {
		t.Fatalf("wave 1 status = %s, want Failed", got)
	}
	if got := result.Plan.Phases[1].Status; got != PhaseVerified {
		t.Fatalf("wave 2 status = %s, want Verified (best-effort continuation)", got)
	}

	// The later wave actually ran.
	if h.rec.indexOf("recover:api") < 0 || h.rec.indexOf("recover:web") < 0 {
		t.Fatalf("wave 2 never executed: %v", h.rec.list())
	}

	recovered := 0
	for _, outcome := range result.Results {
		if outcome.Status == StatusRecovered {
			recovered++
		}
	}
	if recovered != 2 {
		t.Fatalf("partial success not preserved: %d recovered, want 2", recovered)
	}
}

func TestRTOTimeoutDoesNotAbortSiblings(t *testing.T) {
	h := newOrchestratorHarness()
	h.runner.block["slow"] = true

	r := reg(
		node("slow", nil, 20*time.Millisecond),
		node("quick", nil, time.Second),
	)

	result, err := h.orch.Execute(context.Background(), r, "partial-outage", false)
	if err == nil {
		t.Fatal("expected overall failure")
	}

	byService := map[string]report.ServiceResult{}
	for _, outcome := range result.Results {
		byService[outcome.Service] = outcome
	}
	if got := byService["slow"].Status; got != StatusTimedOut {
		t.Fatalf("slow status = %s, want %s", got, StatusTimedOut)
	}
	if byService["slow"].RTOMet {
		t.Fatal("timed-out service reported rto as met")
	}
	if got := byService["quick"].Status; got != StatusRecovered {
		t.Fatalf("quick status = %s, want %s", got, StatusRecovered)
	}

	if !hasEvent(h.dispatcher.Events(), alert.SeverityHigh, "exceeded its rto") {
		t.Fatal("no high-severity rto alert emitted")
	}
}

func TestNoAffectedServices(t *testing.T) {
	h := newOrchestratorHarness()
	for _, id := range []string{"db", "api", "web"} {
		h.checker.markHealthy("check-" + id)
	}

	result, err := h.orch.Execute(context.Background(), layeredRegistry(), "false-alarm", false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("expected success")
	}
	if len(h.rec.list()) != 0 {
		t.Fatalf("actions ran for healthy services: %v", h.rec.list())
	}
	if _, ok := h.sink.last(); !ok {
		t.Fatal("no report written")
	}
}

func TestDryRunReportsPlanWithoutActions(t *testing.T) {
	h := newOrchestratorHarness()

	result, err := h.orch.Execute(context.Background(), layeredRegistry(), "drill", true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("dry run should succeed")
	}
	for _, event := range h.rec.list() {
		if strings.HasPrefix(event, "recover:") {
			t.Fatalf("dry run executed an action: %v", h.rec.list())
		}
	}

	rep, ok := h.sink.last()
	if !ok {
		t.Fatal("no report written")
	}
	joined := strings.Join(rep.Recommendations, "\n")
	if !strings.Contains(joined, "wave 1: db") || !strings.Contains(joined, "wave 2: api, web") {
		t.Fatalf("plan missing from report: %v", rep.Recommendations)
	}
}

func TestRPOViolationSurfacesAsRecommendation(t *testing.T) {
	stale := backup.Meta{
		Service:  "db",
		Location: "backups/db/1.snap",
		TakenAt:  time.Now().Add(-2 * time.Hour),
	}
	h := newOrchestratorHarness(WithBackups(&fakeBackups{metas: map[string]backup.Meta{"db": stale}}))

	db := node("db", nil, time.Second)
	db.Stateful = true
	db.RPO = time.Hour
	ledger := node("ledger", nil, time.Second)
	ledger.Stateful = true
	ledger.RPO = time.Hour

	result, err := h.orch.Execute(context.Background(), reg(db, ledger), "storage-loss", false)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Succeeded {
		t.Fatal("rpo violations must not fail the run")
	}

	rep, ok := h.sink.last()
	if !ok {
		t.Fatal("no report written")
	}
	joined := strings.Join(rep.Recommendations, "\n")
	if !strings.Contains(joined, "db snapshot is") {
		t.Fatalf("stale snapshot not flagged: %v", rep.Recommendations)
	}
	if !strings.Contains(joined, "ledger has no snapshot") {
		t.Fatalf("missing snapshot not flagged: %v", rep.Recommendations)
	}
}
