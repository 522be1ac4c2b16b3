package registry

import (
	"strings"
	"testing"
	"time"
)

const sampleRegistry = `{
  "services": {
    "postgres": {
      "priority": "critical",
      "rto": 1800,
      "rpo": 300,
      "dependencies": [],
      "health_check": "http://postgres.internal:8008/health",
      "recovery_script": "scripts/restore-postgres.sh",
      "environment": "production",
      "stateful": true
    },
    "api": {
      "priority": "high",
      "rto": 3600,
      "rpo": 0,
      "dependencies": ["postgres"],
      "health_check": "http://api.internal:8080/healthz",
      "recovery_script": "scripts/restart-api.sh",
      "environment": "production"
    },
    "worker": {
      "priority": "medium",
      "rto": 1800,
      "rpo": 0,
      "dependencies": ["postgres", "legacy-queue"],
      "health_check": "http://worker.internal:9090/healthz",
      "recovery_script": "scripts/restart-worker.sh"
    }
  },
  "backup_locations": {"primary": "s3://backups/primary", "secondary": "s3://backups/dr"},
  "notification": {"slack": "https://hooks.slack.com/services/T/B/X"}
}`

func TestParse_ValidRegistry(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reg.Services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(reg.Services))
	}

	pg := reg.Services["postgres"]
	if pg.Priority != PriorityCritical {
		t.Fatalf("expected critical priority, got %s", pg.Priority)
	}
	if pg.RTO != 1800*time.Second {
		t.Fatalf("expected rto 1800s, got %s", pg.RTO)
	}
	if !pg.Stateful {
		t.Fatal("expected postgres to be stateful")
	}

	if reg.BackupLocations.Primary != "s3://backups/primary" {
		t.Fatalf("unexpected primary backup location: %s", reg.BackupLocations.Primary)
	}
	if reg.Fingerprint == "" {
		t.Fatal("expected a fingerprint")
	}
}

func TestParse_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "unknown priority",
			payload: `{"services":{"a":{"priority":"urgent","rto":60,"health_check":"http://a/h"}}}`,
			want:    "unknown priority",
		},
		{
			name:    "zero rto",
			payload: `{"services":{"a":{"priority":"high","rto":0,"health_check":"http://a/h"}}}`,
			want:    "rto must be greater than zero",
		},
		{
			name:    "missing health check",
			payload: `{"services":{"a":{"priority":"high","rto":60}}}`,
			want:    "health_check is required",
		},
		{
			name:    "self dependency",
			payload: `{"services":{"a":{"priority":"high","rto":60,"health_check":"http://a/h","dependencies":["a"]}}}`,
			want:    "depends on itself",
		},
		{
			name:    "no services",
			payload: `{"services":{}}`,
			want:    "no services",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDanglingDependencies(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dangling := reg.DanglingDependencies()
	if len(dangling) != 1 || dangling[0] != "legacy-queue" {
		t.Fatalf("expected [legacy-queue], got %v", dangling)
	}
}

func TestServicesForEnvironment(t *testing.T) {
	reg, err := Parse([]byte(sampleRegistry))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prod := reg.ServicesForEnvironment("production")
	if len(prod) != 2 {
		t.Fatalf("expected 2 production services, got %d", len(prod))
	}
	if prod[0].ID != "api" || prod[1].ID != "postgres" {
		t.Fatalf("expected sorted [api postgres], got [%s %s]", prod[0].ID, prod[1].ID)
	}
}
