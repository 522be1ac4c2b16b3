package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/rs/zerolog"
)

func TestNewPerformance(t *testing.T) {
	perf := NewPerformance(2700*time.Second, 5400*time.Second)
	if !perf.RTOMet {
		t.Fatal("2700s actual against 5400s estimate should meet the objective")
	}
	if perf.Efficiency != 2 {
		t.Fatalf("expected efficiency 2, got %v", perf.Efficiency)
	}

	perf = NewPerformance(5400*time.Second, 2700*time.Second)
	if perf.RTOMet {
		t.Fatal("overrun should not meet the objective")
	}
	if perf.Efficiency != 0.5 {
		t.Fatalf("expected efficiency 0.5, got %v", perf.Efficiency)
	}

	perf = NewPerformance(0, time.Minute)
	if perf.Efficiency != 1 {
		t.Fatalf("zero actual should clamp efficiency to 1, got %v", perf.Efficiency)
	}
}

func TestNewSessionID(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := NewSessionID(KindRecovery, startedAt)
	if !strings.HasPrefix(id, "recovery-20260301T120000Z-") {
		t.Fatalf("unexpected id: %s", id)
	}
	if id == NewSessionID(KindRecovery, startedAt) {
		t.Fatal("ids should be unique")
	}
}

func TestFileSink_WritesReportJSON(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, zerolog.Nop())

	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Report{
		Session: Session{
			ID:        "recovery-test-0001",
			Kind:      KindRecovery,
			Disaster:  "zone-loss",
			StartedAt: startedAt,
			EndedAt:   startedAt.Add(45 * time.Minute),
		},
		Assessment: &Assessment{
			Disaster:         "zone-loss",
			AssessedAt:       startedAt,
			AffectedServices: []string{"postgres", "api"},
			HealthyServices:  []string{"cdn"},
		},
		Results: []ServiceResult{
			{Service: "postgres", Phase: 1, Status: "recovered", DurationSeconds: 900, RTOSeconds: 1800, RTOMet: true},
		},
		Performance:     NewPerformance(45*time.Minute, 90*time.Minute),
		Recommendations: []string{"none"},
		Events:          []alert.Alert{alert.New("recovery/zone-loss", "phase_verified", alert.SeverityInfo, "phase 1 verified")},
	}

	if err := sink.Write(context.Background(), r); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "recovery-test-0001.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	for _, field := range []string{"recovery_session", "disaster_assessment", "recovery_results", "performance_metrics", "recommendations", "events"} {
		if _, ok := decoded[field]; !ok {
			t.Fatalf("report missing %s field", field)
		}
	}
}

func TestFileSink_RequiresSessionID(t *testing.T) {
	sink := NewFileSink(t.TempDir(), zerolog.Nop())
	if err := sink.Write(context.Background(), Report{}); err == nil {
		t.Fatal("expected error for missing session id")
	}
}
