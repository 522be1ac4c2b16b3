package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestHTTPClient_StatusAndRouting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/environments/production/deployments/canary":
			_ = json.NewEncoder(w).Encode(DeploymentStatus{
				Name:            "canary",
				Version:         "v2.1.0",
				DesiredReplicas: 1,
				RunningReplicas: 1,
				Ready:           true,
				Pods:            []Pod{{Name: "canary-0", Phase: PodRunning}},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/environments/production/routing":
			_ = json.NewEncoder(w).Encode(map[string]string{"active_slot": "blue"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(zerolog.Nop(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	status, err := client.Status(context.Background(), "production", "canary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Version != "v2.1.0" || !status.AllPodsRunning() {
		t.Fatalf("unexpected status: %+v", status)
	}

	slot, err := client.ActiveSlot(context.Background(), "production")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot != "blue" {
		t.Fatalf("expected blue, got %s", slot)
	}
}

func TestHTTPClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewHTTPClient(zerolog.Nop(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	_, err = client.Status(context.Background(), "production", "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPClient_ErrorHookAndAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad weights"))
	}))
	defer server.Close()

	errCount := 0
	client, err := NewHTTPClient(zerolog.Nop(), server.URL, WithErrorHook(func() { errCount++ }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	err = client.SetWeights(context.Background(), "production", map[string]int{"stable": 90, "canary": 10})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", apiErr.StatusCode)
	}
	if errCount != 1 {
		t.Fatalf("expected error hook to fire once, got %d", errCount)
	}
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	if _, err := NewHTTPClient(zerolog.Nop(), "not a url"); err == nil {
		t.Fatal("expected error for invalid base URL")
	}
}

func TestAllPodsRunning(t *testing.T) {
	status := &DeploymentStatus{Pods: []Pod{
		{Name: "a", Phase: PodRunning},
		{Name: "b", Phase: "CrashLoopBackOff"},
	}}
	if status.AllPodsRunning() {
		t.Fatal("expected false with a crashing pod")
	}
	status.Pods[1].Phase = PodRunning
	if !status.AllPodsRunning() {
		t.Fatal("expected true with all pods running")
	}
}
