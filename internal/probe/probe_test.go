package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsforge/warden/internal/platform"
	"github.com/rs/zerolog"
)

type fakePlatform struct {
	platform.Client
	statusCalls int32
	readyAfter  int32
}

func (f *fakePlatform) Status(_ context.Context, _, name string) (*platform.DeploymentStatus, error) {
	calls := atomic.AddInt32(&f.statusCalls, 1)
	return &platform.DeploymentStatus{
		Name:            name,
		DesiredReplicas: 2,
		RunningReplicas: 2,
		Ready:           calls > f.readyAfter,
	}, nil
}

func TestCheck_URLProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := New(zerolog.Nop(), &fakePlatform{})
	if err := p.Check(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheck_URLProbeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := New(zerolog.Nop(), &fakePlatform{})
	if err := p.Check(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestCheck_PlatformSpec(t *testing.T) {
	p := New(zerolog.Nop(), &fakePlatform{})
	if err := p.Check(context.Background(), "platform://production/api"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheck_RejectsBadSpecs(t *testing.T) {
	p := New(zerolog.Nop(), &fakePlatform{})
	for _, spec := range []string{"", "ftp://host/x", "platform://production"} {
		if err := p.Check(context.Background(), spec); err == nil {
			t.Fatalf("expected error for spec %q", spec)
		}
	}
}

func TestWaitReady_RetriesUntilReady(t *testing.T) {
	fake := &fakePlatform{readyAfter: 2}
	p := New(zerolog.Nop(), fake)

	err := p.WaitReady(context.Background(), "production", "canary", Policy{Attempts: 5, Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := atomic.LoadInt32(&fake.statusCalls); calls != 3 {
		t.Fatalf("expected 3 status calls, got %d", calls)
	}
}

func TestWaitReady_ExhaustsAttempts(t *testing.T) {
	fake := &fakePlatform{readyAfter: 100}
	p := New(zerolog.Nop(), fake)

	err := p.WaitReady(context.Background(), "production", "canary", Policy{Attempts: 3, Interval: time.Millisecond})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls := atomic.LoadInt32(&fake.statusCalls); calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestWaitHealthy_HonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(zerolog.Nop(), &fakePlatform{})
	err := p.WaitHealthy(ctx, server.URL, Policy{Attempts: 100, Interval: time.Second})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
