package report

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/opsforge/warden/internal/alert"
)

// Kind distinguishes rollout reports from recovery reports.
type Kind string

const (
	KindRollout  Kind = "rollout"
	KindRecovery Kind = "recovery"
)

// Session identifies one rollout or recovery run.
type Session struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Environment string    `json:"environment,omitempty"`
	Disaster    string    `json:"disaster,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

// Assessment summarizes the disaster assessment that produced a plan.
type Assessment struct {
	Disaster            string    `json:"disaster"`
	AssessedAt          time.Time `json:"assessed_at"`
	AffectedServices    []string  `json:"affected_services"`
	HealthyServices     []string  `json:"healthy_services"`
	RegistryFingerprint string    `json:"registry_fingerprint,omitempty"`
}

// ServiceResult is the per-service recovery outcome.
type ServiceResult struct {
	Service         string  `json:"service"`
	Phase           int     `json:"phase"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	RTOSeconds      float64 `json:"rto_seconds"`
	RTOMet          bool    `json:"rto_met"`
	Detail          string  `json:"detail,omitempty"`
}

// Performance captures the timing outcome of a run.
type Performance struct {
	ActualSeconds    float64 `json:"actual_duration_seconds"`
	EstimatedSeconds float64 `json:"estimated_duration_seconds"`
	RTOMet           bool    `json:"rto_met"`
	Efficiency       float64 `json:"efficiency"`
}

// NewPerformance computes the timing verdict: the objective is met when the
// actual duration does not exceed the estimate, and efficiency is the ratio
// of estimated to actual time.
func NewPerformance(actual, estimated time.Duration) Performance {
	perf := Performance{
		ActualSeconds:    actual.Seconds(),
		EstimatedSeconds: estimated.Seconds(),
		RTOMet:           actual <= estimated,
	}
	if actual > 0 {
		perf.Efficiency = estimated.Seconds() / actual.Seconds()
	} else {
		perf.Efficiency = 1
	}
	return perf
}

// Report is the persisted outcome of one run. Never mutated after write.
type Report struct {
	Session         Session         `json:"recovery_session"`
	Assessment      *Assessment     `json:"disaster_assessment,omitempty"`
	Results         []ServiceResult `json:"recovery_results,omitempty"`
	Performance     Performance     `json:"performance_metrics"`
	Recommendations []string        `json:"recommendations"`
	Events          []alert.Alert   `json:"events"`
}

// NewSessionID returns a unique session identifier like
// "rollout-20260301T120000Z-a1b2c3d4".
func NewSessionID(kind Kind, startedAt time.Time) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s-%s-%s", kind, startedAt.UTC().Format("20060102T150405Z"), hex.EncodeToString(suffix))
}
