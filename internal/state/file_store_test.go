package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, zerolog.Nop())

	saved := State{Targets: map[string]Target{
		"production": {
			Environment: "production",
			Version:     "v1.4.2",
			ActiveSlot:  "blue",
			Weights:     map[string]int{"stable": 100, "canary": 0},
			RecordedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}}

	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	target, ok := loaded.LastKnownGood("production")
	if !ok {
		t.Fatal("expected production target")
	}
	if target.Version != "v1.4.2" || target.ActiveSlot != "blue" {
		t.Fatalf("unexpected target: %+v", target)
	}
	if target.Weights["stable"] != 100 {
		t.Fatalf("unexpected weights: %v", target.Weights)
	}
}

func TestFileStore_MissingFileStartsFresh(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Targets == nil || len(loaded.Targets) != 0 {
		t.Fatalf("expected empty state, got %+v", loaded)
	}
}

func TestFileStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewFileStore(path, zerolog.Nop())
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Targets) != 0 {
		t.Fatalf("expected empty state, got %+v", loaded)
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Load(ctx); err == nil {
		t.Fatal("expected context error on load")
	}
	if err := store.Save(ctx, State{}); err == nil {
		t.Fatal("expected context error on save")
	}
}
