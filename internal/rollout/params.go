package rollout

import (
	"errors"
	"fmt"
)

// Strategy selects the rollout variant.
type Strategy string

const (
	StrategyRolling   Strategy = "rolling"
	StrategyBlueGreen Strategy = "blue-green"
	StrategyCanary    Strategy = "canary"
)

// Well-known deployment names within an environment. Blue-green slots flip
// between blue and green; canary runs beside the stable deployment.
const (
	DeploymentStable = "stable"
	DeploymentCanary = "canary"
	SlotBlue         = "blue"
	SlotGreen        = "green"
)

// Params are the operator-supplied inputs for one rollout invocation.
// Validation failures are fatal before any state transition or platform call.
type Params struct {
	Environment      string
	Strategy         Strategy
	Version          string
	CanaryPercentage int
	ManualPromotion  bool
	DryRun           bool

	// LatencyThreshold bounds the secondary p95 latency probe in
	// milliseconds. Zero disables the probe.
	LatencyThreshold float64
}

// Validate checks params before the run starts.
func (p Params) Validate() error {
	if p.Environment == "" {
		return errors.New("environment must not be empty")
	}
	if p.Version == "" {
		return errors.New("version must not be empty")
	}
	switch p.Strategy {
	case StrategyRolling, StrategyBlueGreen, StrategyCanary:
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	if p.Strategy == StrategyCanary {
		if p.CanaryPercentage < 1 || p.CanaryPercentage > 50 {
			return fmt.Errorf("canary percentage out of range [1,50]: %d", p.CanaryPercentage)
		}
	}
	if p.LatencyThreshold < 0 {
		return errors.New("latency threshold must not be negative")
	}
	return nil
}

// CanaryReplicas sizes the canary deployment: floor(total*pct/100), never
// below one replica.
func CanaryReplicas(totalReplicas, percentage int) int {
	replicas := totalReplicas * percentage / 100
	if replicas < 1 {
		return 1
	}
	return replicas
}

// OppositeSlot returns the inactive blue-green slot.
func OppositeSlot(active string) string {
	if active == SlotBlue {
		return SlotGreen
	}
	return SlotBlue
}
