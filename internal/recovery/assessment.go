package recovery

import (
	"context"
	"sort"
	"time"

	"github.com/opsforge/warden/internal/probe"
	"github.com/opsforge/warden/internal/registry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultAssessConcurrency = 8

// Checker answers health probes. *probe.Prober satisfies it.
type Checker interface {
	Check(ctx context.Context, spec string) error
	WaitHealthy(ctx context.Context, spec string, policy probe.Policy) error
}

// Assessment is the outcome of probing every registry service once.
type Assessment struct {
	Disaster    string
	AssessedAt  time.Time
	Affected    []registry.ServiceNode
	Healthy     []string
	Fingerprint string
}

// AffectedIDs returns the affected service ids in sorted order.
func (a Assessment) AffectedIDs() []string {
	out := make([]string, 0, len(a.Affected))
	for _, svc := range a.Affected {
		out = append(out, svc.ID)
	}
	return out
}

// Assessor produces the affected set that recovery planning works from.
type Assessor struct {
	logger      zerolog.Logger
	checker     Checker
	now         func() time.Time
	concurrency int
}

// NewAssessor constructs an Assessor over the given health checker.
func NewAssessor(logger zerolog.Logger, checker Checker) *Assessor {
	return &Assessor{
		logger:      logger,
		checker:     checker,
		now:         time.Now,
		concurrency: defaultAssessConcurrency,
	}
}

// Assess probes every service in the registry concurrently and collects the
// failures as the affected set.
func (a *Assessor) Assess(ctx context.Context, reg *registry.Registry, disaster string) (Assessment, error) {
	ids := make([]string, 0, len(reg.Services))
	for id := range reg.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	healthy := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		i := i
		svc := reg.Services[id]
		g.Go(func() error {
			if err := a.checker.Check(gctx, svc.HealthCheck); err != nil {
				a.logger.Warn().
					Err(err).
					Str("service", svc.ID).
					Msg("health check failed during assessment")
				return nil
			}
			healthy[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Assessment{}, err
	}
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	assessment := Assessment{
		Disaster:    disaster,
		AssessedAt:  a.now().UTC(),
		Fingerprint: reg.Fingerprint,
	}
	for i, id := range ids {
		if healthy[i] {
			assessment.Healthy = append(assessment.Healthy, id)
			continue
		}
		assessment.Affected = append(assessment.Affected, reg.Services[id])
	}

	a.logger.Info().
		Str("disaster", disaster).
		Int("affected", len(assessment.Affected)).
		Int("healthy", len(assessment.Healthy)).
		Msg("disaster assessment complete")
	return assessment, nil
}
