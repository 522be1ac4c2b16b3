package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// Priority ranks how quickly a service must come back during recovery.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
)

// ServiceNode describes one service in the registry. Immutable for the
// duration of a run; loaded once at assessment time.
type ServiceNode struct {
	ID             string
	Priority       Priority
	RTO            time.Duration
	RPO            time.Duration
	Dependencies   []string
	HealthCheck    string
	RecoveryScript string
	Environment    string
	Stateful       bool
}

// BackupLocations names the primary and secondary backup targets.
type BackupLocations struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Registry is the parsed service registry plus file metadata.
type Registry struct {
	Services        map[string]ServiceNode
	BackupLocations BackupLocations
	Notification    map[string]string
	Fingerprint     string
}

type rawService struct {
	Priority       string   `json:"priority"`
	RTO            int64    `json:"rto"`
	RPO            int64    `json:"rpo"`
	Dependencies   []string `json:"dependencies"`
	HealthCheck    string   `json:"health_check"`
	RecoveryScript string   `json:"recovery_script"`
	Environment    string   `json:"environment"`
	Stateful       bool     `json:"stateful"`
}

type rawRegistry struct {
	Services        map[string]rawService `json:"services"`
	BackupLocations BackupLocations       `json:"backup_locations"`
	Notification    map[string]string     `json:"notification"`
}

// Load reads and parses the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates registry bytes.
func Parse(data []byte) (*Registry, error) {
	if len(data) == 0 {
		return nil, errors.New("registry is empty")
	}

	var raw rawRegistry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(raw.Services) == 0 {
		return nil, errors.New("registry has no services")
	}

	reg := &Registry{
		Services:        make(map[string]ServiceNode, len(raw.Services)),
		BackupLocations: raw.BackupLocations,
		Notification:    raw.Notification,
		Fingerprint:     fingerprint(data),
	}

	for id, svc := range raw.Services {
		node, err := buildNode(id, svc)
		if err != nil {
			return nil, err
		}
		reg.Services[id] = node
	}

	return reg, nil
}

func buildNode(id string, raw rawService) (ServiceNode, error) {
	if id == "" {
		return ServiceNode{}, errors.New("service id must not be empty")
	}

	priority := Priority(raw.Priority)
	switch priority {
	case PriorityCritical, PriorityHigh, PriorityMedium:
	default:
		return ServiceNode{}, fmt.Errorf("service %s: unknown priority %q", id, raw.Priority)
	}

	if raw.RTO <= 0 {
		return ServiceNode{}, fmt.Errorf("service %s: rto must be greater than zero", id)
	}
	if raw.RPO < 0 {
		return ServiceNode{}, fmt.Errorf("service %s: rpo must not be negative", id)
	}
	if raw.HealthCheck == "" {
		return ServiceNode{}, fmt.Errorf("service %s: health_check is required", id)
	}

	for _, dep := range raw.Dependencies {
		if dep == id {
			return ServiceNode{}, fmt.Errorf("service %s: depends on itself", id)
		}
	}

	return ServiceNode{
		ID:             id,
		Priority:       priority,
		RTO:            time.Duration(raw.RTO) * time.Second,
		RPO:            time.Duration(raw.RPO) * time.Second,
		Dependencies:   append([]string(nil), raw.Dependencies...),
		HealthCheck:    raw.HealthCheck,
		RecoveryScript: raw.RecoveryScript,
		Environment:    raw.Environment,
		Stateful:       raw.Stateful,
	}, nil
}

// ServicesForEnvironment returns the services labeled with env, sorted by id.
func (r *Registry) ServicesForEnvironment(env string) []ServiceNode {
	var out []ServiceNode
	for _, svc := range r.Services {
		if svc.Environment == env {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DanglingDependencies lists dependency ids that are not present in the
// registry. These do not fail parsing; the recovery planner places such
// services in the final wave.
func (r *Registry) DanglingDependencies() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, svc := range r.Services {
		for _, dep := range svc.Dependencies {
			if _, ok := r.Services[dep]; ok {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	sort.Strings(out)
	return out
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
