package alert

import (
	"testing"
	"time"
)

func TestDeduper_SuppressesWithinWindow(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDeduper(5*time.Minute, WithClock(func() time.Time { return current }))

	a := New("rollout/prod", "transition", SeverityWarning, "entering RollingBack")

	if !d.Allow(a) {
		t.Fatal("first alert should be allowed")
	}
	if d.Allow(a) {
		t.Fatal("duplicate within window should be suppressed")
	}

	current = current.Add(4 * time.Minute)
	if d.Allow(a) {
		t.Fatal("duplicate at 4m should still be suppressed")
	}

	current = current.Add(2 * time.Minute)
	if !d.Allow(a) {
		t.Fatal("alert after window expiry should be allowed again")
	}
}

func TestDeduper_KeyedBySourceAndMessage(t *testing.T) {
	d := NewDeduper(5 * time.Minute)

	a := New("rollout/prod", "transition", SeverityInfo, "entering Monitoring")
	b := New("rollout/staging", "transition", SeverityInfo, "entering Monitoring")
	c := New("rollout/prod", "transition", SeverityInfo, "entering Promoting")

	if !d.Allow(a) {
		t.Fatal("first alert should be allowed")
	}
	if !d.Allow(b) {
		t.Fatal("same message from a different source should be allowed")
	}
	if !d.Allow(c) {
		t.Fatal("different message from the same source should be allowed")
	}
}

func TestAlert_AtLeast(t *testing.T) {
	a := New("recovery/region-loss", "service_failed", SeverityHigh, "db recovery timed out")
	if !a.AtLeast(SeverityWarning) {
		t.Fatal("high should satisfy a warning floor")
	}
	if a.AtLeast(SeverityCritical) {
		t.Fatal("high should not satisfy a critical floor")
	}
}
