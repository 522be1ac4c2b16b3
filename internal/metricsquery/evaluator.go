package metricsquery

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind names a supported metric query.
type Kind string

const (
	KindErrorRate  Kind = "error_rate"
	KindLatencyP95 Kind = "latency_p95"
	KindCPUUsage   Kind = "cpu_usage"
	KindMemUsage   Kind = "memory_usage"
)

// ErrBackendUnavailable is returned when the metrics backend cannot answer.
var ErrBackendUnavailable = errors.New("metrics backend unavailable")

// Query is a time-windowed question against the metrics backend. The verdict
// compares the observed value against Threshold: the query passes when the
// value does not exceed it.
type Query struct {
	Environment string
	Deployment  string
	Kind        Kind
	Window      time.Duration
	Threshold   float64
}

// Validate checks query fields before hitting the backend.
func (q Query) Validate() error {
	switch q.Kind {
	case KindErrorRate, KindLatencyP95, KindCPUUsage, KindMemUsage:
	default:
		return fmt.Errorf("unknown metric kind %q", q.Kind)
	}
	if q.Environment == "" {
		return errors.New("query environment must not be empty")
	}
	if q.Window <= 0 {
		return errors.New("query window must be greater than zero")
	}
	return nil
}

// Observation is a numeric reading plus the verdict against the threshold.
// Degraded marks a fail-open result produced while the backend was
// unreachable; callers treating the probe as primary must not see one.
type Observation struct {
	Kind      Kind
	Value     float64
	Threshold float64
	Pass      bool
	Degraded  bool
	At        time.Time
}

// Evaluator answers metric queries with pass/fail verdicts.
//
// Backend unavailability is asymmetric: the primary error-rate check
// propagates the failure so the caller can fail closed, while secondary
// probes (latency, resource usage) return an assume-healthy observation
// marked Degraded.
type Evaluator interface {
	Evaluate(ctx context.Context, q Query) (Observation, error)
}
