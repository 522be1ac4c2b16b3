package rollout

import (
	"time"

	"github.com/opsforge/warden/internal/state"
)

// Run is the explicit context for one rollout invocation. All cross-phase
// state lives here; the controller is its single writer for the lifetime of
// the run.
type Run struct {
	Params    Params
	Session   string
	StartedAt time.Time

	state           State
	lastGood        state.Target
	activeSlot      string
	targetSlot      string
	totalReplicas   int
	canaryReplicas  int
	estimated       time.Duration
	recommendations []string
}

// State returns the current state machine position.
func (r *Run) State() State {
	return r.state
}

// CanaryReplicas returns the canary deployment size computed during
// Deploying, or zero before that.
func (r *Run) CanaryReplicas() int {
	return r.canaryReplicas
}

// TargetSlot returns the blue-green candidate slot chosen during Deploying.
func (r *Run) TargetSlot() string {
	return r.targetSlot
}
