package alert

import "time"

// Severity orders alerts from informational to critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is a single ephemeral notification event. Source identifies the
// logical emitter (one rollout run, one recovery session) and scopes
// duplicate suppression.
type Alert struct {
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an alert stamped with the current UTC time.
func New(source, alertType string, severity Severity, message string) Alert {
	return Alert{
		Source:    source,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the alert severity meets the given floor.
func (a Alert) AtLeast(floor Severity) bool {
	return severityRank(a.Severity) >= severityRank(floor)
}
