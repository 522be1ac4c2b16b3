package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest run timing details.
type Snapshot struct {
	LastRunTime   *time.Time `json:"last_run_time"`
	RunDurationMS int64      `json:"run_duration_ms"`
	RunKind       string     `json:"run_kind"`
	RunState      string     `json:"run_state"`
}

// Tracker records run progress for health endpoints. A rollout or recovery
// run reports its heartbeat here so a long monitoring loop still counts as
// alive.
type Tracker struct {
	mu          sync.RWMutex
	lastRun     time.Time
	runDuration time.Duration
	runKind     string
	runState    string
	ready       bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordProgress updates the heartbeat with the run's current state.
func (t *Tracker) RecordProgress(kind, state string, elapsed time.Duration) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastRun = now
	t.runDuration = elapsed
	t.runKind = kind
	t.runState = state
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastRun.IsZero() {
		value := t.lastRun
		last = &value
	}
	return Snapshot{
		LastRunTime:   last,
		RunDurationMS: int64(t.runDuration / time.Millisecond),
		RunKind:       t.runKind,
		RunState:      t.runState,
	}
}

// Ready reports whether the run has recorded at least one heartbeat.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether a heartbeat arrived within 2x the expected interval.
func (t *Tracker) Healthy(now time.Time, interval time.Duration) bool {
	if t == nil || interval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastRun.IsZero() {
		return false
	}
	return now.Sub(t.lastRun) <= 2*interval
}
