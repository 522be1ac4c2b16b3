package recovery

import (
	"fmt"
	"sort"
	"time"

	"github.com/opsforge/warden/internal/registry"
)

// PhaseStatus tracks one recovery wave through its lifecycle.
type PhaseStatus string

const (
	PhasePending  PhaseStatus = "Pending"
	PhaseRunning  PhaseStatus = "Running"
	PhaseVerified PhaseStatus = "Verified"
	PhaseFailed   PhaseStatus = "Failed"
)

// Phase is one recovery wave. Created by the planner; owned and mutated only
// by the orchestrator.
type Phase struct {
	Index       int
	Services    []registry.ServiceNode
	StartedAt   time.Time
	CompletedAt time.Time
	Status      PhaseStatus
}

// Plan is the phased recovery plan for one disaster assessment. Waves execute
// sequentially; services within a wave execute in parallel, so a wave's
// estimated duration is bounded by its slowest member.
type Plan struct {
	Phases            []Phase
	EstimatedDuration time.Duration
	TotalServices     int
}

// BuildPlan layers the affected services into dependency-ordered waves.
//
// Wave 1 holds affected services with no dependencies inside the affected
// set; wave k holds services whose affected dependencies all sit in earlier
// waves. Dependencies on healthy services are already satisfied and never
// gate placement. A service whose dependency cannot be resolved within the
// affected set, because the dependency is missing from the registry or sits
// on a cycle, goes into the final wave instead of failing the planning step.
func BuildPlan(reg *registry.Registry, affectedIDs []string) (Plan, error) {
	affected := make(map[string]registry.ServiceNode, len(affectedIDs))
	for _, id := range affectedIDs {
		svc, ok := reg.Services[id]
		if !ok {
			return Plan{}, fmt.Errorf("affected service %s is not in the registry", id)
		}
		affected[id] = svc
	}

	remaining := make(map[string]registry.ServiceNode, len(affected))
	var deferred []registry.ServiceNode
	for id, svc := range affected {
		dangling := false
		for _, dep := range svc.Dependencies {
			if _, ok := reg.Services[dep]; !ok {
				dangling = true
				break
			}
		}
		if dangling {
			deferred = append(deferred, svc)
			continue
		}
		remaining[id] = svc
	}

	placed := make(map[string]bool, len(affected))
	var waves [][]registry.ServiceNode
	for len(remaining) > 0 {
		var wave []registry.ServiceNode
		for _, svc := range remaining {
			ready := true
			for _, dep := range svc.Dependencies {
				if _, isAffected := affected[dep]; isAffected && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, svc)
			}
		}
		if len(wave) == 0 {
			// Cyclic remainder; fall back to the final wave.
			for _, svc := range remaining {
				deferred = append(deferred, svc)
			}
			break
		}
		sortByID(wave)
		for _, svc := range wave {
			placed[svc.ID] = true
			delete(remaining, svc.ID)
		}
		waves = append(waves, wave)
	}

	if len(deferred) > 0 {
		sortByID(deferred)
		waves = append(waves, deferred)
	}

	plan := Plan{TotalServices: len(affected)}
	for i, wave := range waves {
		var slowest time.Duration
		for _, svc := range wave {
			if svc.RTO > slowest {
				slowest = svc.RTO
			}
		}
		plan.EstimatedDuration += slowest
		plan.Phases = append(plan.Phases, Phase{
			Index:    i + 1,
			Services: wave,
			Status:   PhasePending,
		})
	}
	return plan, nil
}

func sortByID(services []registry.ServiceNode) {
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
}
