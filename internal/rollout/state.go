package rollout

import "github.com/opsforge/warden/internal/alert"

// State is the rollout state machine position. One instance per invocation;
// Completed and Failed are terminal.
type State string

const (
	StateInit           State = "Init"
	StateDeploying      State = "Deploying"
	StateHealthChecking State = "HealthChecking"
	StateMonitoring     State = "Monitoring"
	StatePromoting      State = "Promoting"
	StateRollingBack    State = "RollingBack"
	StateCompleted      State = "Completed"
	StateFailed         State = "Failed"
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func severityFor(s State) alert.Severity {
	switch s {
	case StateFailed:
		return alert.SeverityHigh
	case StateRollingBack:
		return alert.SeverityWarning
	default:
		return alert.SeverityInfo
	}
}
