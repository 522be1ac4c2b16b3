package rollout

import (
	"errors"
	"fmt"
)

// RunError marks a rollout that terminated in Failed. Callers branch on it
// to choose the process exit code.
type RunError struct {
	Session string
	Reason  string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("rollout %s failed: %s", e.Session, e.Reason)
}

// errPromotionDeclined is returned when the operator refuses a manual
// promotion prompt.
var errPromotionDeclined = errors.New("promotion declined by operator")

// breachError is a threshold breach observed during monitoring or traffic
// verification. Never retried; triggers rollback immediately.
type breachError struct {
	reason string
}

func (e *breachError) Error() string {
	return e.reason
}
