package traffic

import (
	"context"
	"errors"
	"testing"

	"github.com/opsforge/warden/internal/platform"
	"github.com/rs/zerolog"
)

type fakePlatform struct {
	platform.Client
	weightCalls []map[string]int
	setErr      error
}

func (f *fakePlatform) SetWeights(_ context.Context, _ string, weights map[string]int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.weightCalls = append(f.weightCalls, weights)
	return nil
}

func TestSet_AppliesValidAssignment(t *testing.T) {
	fake := &fakePlatform{}
	s := NewSplitter(zerolog.Nop(), fake)

	err := s.Set(context.Background(), "production", Assignment{"stable": 95, "canary": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.weightCalls) != 1 {
		t.Fatalf("expected one platform call, got %d", len(fake.weightCalls))
	}

	current, ok := s.Current("production")
	if !ok {
		t.Fatal("expected current assignment")
	}
	if current["stable"] != 95 || current["canary"] != 5 {
		t.Fatalf("unexpected current assignment: %v", current)
	}
}

func TestSet_RejectsInvalidSumBeforePlatformCall(t *testing.T) {
	cases := []Assignment{
		{"stable": 90, "canary": 5},
		{"stable": 101},
		{"stable": -1, "canary": 101},
		{},
	}

	for _, assignment := range cases {
		fake := &fakePlatform{}
		s := NewSplitter(zerolog.Nop(), fake)
		if err := s.Set(context.Background(), "production", assignment); err == nil {
			t.Fatalf("expected error for assignment %v", assignment)
		}
		if len(fake.weightCalls) != 0 {
			t.Fatalf("invalid assignment %v must not reach the platform", assignment)
		}
	}
}

func TestSet_PlatformFailureLeavesCurrentUnchanged(t *testing.T) {
	fake := &fakePlatform{}
	s := NewSplitter(zerolog.Nop(), fake)

	if err := s.Set(context.Background(), "production", Assignment{"stable": 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.setErr = errors.New("platform down")
	if err := s.Set(context.Background(), "production", Assignment{"stable": 50, "canary": 50}); err == nil {
		t.Fatal("expected error from platform")
	}

	current, _ := s.Current("production")
	if current["stable"] != 100 {
		t.Fatalf("current should reflect last successful apply, got %v", current)
	}
}

func TestAssignment_SumInvariantHolds(t *testing.T) {
	fake := &fakePlatform{}
	s := NewSplitter(zerolog.Nop(), fake)

	steps := []Assignment{
		{"stable": 100},
		{"stable": 95, "canary": 5},
		{"stable": 0, "canary": 100},
		{"stable": 100, "canary": 0},
	}
	for _, step := range steps {
		if err := s.Set(context.Background(), "production", step); err != nil {
			t.Fatalf("unexpected error for %v: %v", step, err)
		}
		current, _ := s.Current("production")
		total := 0
		for _, weight := range current {
			total += weight
		}
		if total != 100 {
			t.Fatalf("sum invariant violated after %v: %d", step, total)
		}
	}
}
