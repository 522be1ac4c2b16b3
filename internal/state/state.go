package state

import (
	"context"
	"time"
)

// Target is the last-known-good deployment for an environment. RollingBack
// restores routing and version from it.
type Target struct {
	Environment string         `json:"environment"`
	Version     string         `json:"version"`
	ActiveSlot  string         `json:"active_slot,omitempty"`
	Weights     map[string]int `json:"weights,omitempty"`
	RecordedAt  time.Time      `json:"recorded_at"`
}

// State stores the last-known-good target per environment.
type State struct {
	Targets map[string]Target `json:"targets"`
}

// LastKnownGood returns the recorded target for an environment.
func (s State) LastKnownGood(environment string) (Target, bool) {
	target, ok := s.Targets[environment]
	return target, ok
}

// Store defines the interface for persisting state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}
