package traffic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/opsforge/warden/internal/platform"
	"github.com/rs/zerolog"
)

// Assignment maps version names to integer traffic weights. The weights for
// one environment must always sum to exactly 100.
type Assignment map[string]int

// Validate enforces the weight invariant.
func (a Assignment) Validate() error {
	if len(a) == 0 {
		return fmt.Errorf("assignment must name at least one version")
	}
	total := 0
	for name, weight := range a {
		if name == "" {
			return fmt.Errorf("assignment has an unnamed version")
		}
		if weight < 0 || weight > 100 {
			return fmt.Errorf("weight for %s out of range: %d", name, weight)
		}
		total += weight
	}
	if total != 100 {
		return fmt.Errorf("weights must sum to 100, got %d", total)
	}
	return nil
}

func (a Assignment) String() string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%d", name, a[name]))
	}
	return strings.Join(parts, " ")
}

// Splitter applies traffic-weight assignments through the platform and keeps
// the last applied assignment per environment.
type Splitter struct {
	logger   zerolog.Logger
	platform platform.Client
	mu       sync.Mutex
	current  map[string]Assignment
}

// NewSplitter constructs a Splitter over the given platform client.
func NewSplitter(logger zerolog.Logger, client platform.Client) *Splitter {
	return &Splitter{
		logger:   logger,
		platform: client,
		current:  make(map[string]Assignment),
	}
}

// Set validates and applies an assignment for the environment. The invariant
// is checked before any platform call; an invalid assignment never reaches
// the platform.
func (s *Splitter) Set(ctx context.Context, environment string, assignment Assignment) error {
	if environment == "" {
		return fmt.Errorf("environment must not be empty")
	}
	if err := assignment.Validate(); err != nil {
		return fmt.Errorf("traffic assignment for %s: %w", environment, err)
	}

	weights := make(map[string]int, len(assignment))
	for name, weight := range assignment {
		weights[name] = weight
	}
	if err := s.platform.SetWeights(ctx, environment, weights); err != nil {
		return fmt.Errorf("apply traffic weights: %w", err)
	}

	s.mu.Lock()
	s.current[environment] = assignment
	s.mu.Unlock()

	s.logger.Info().
		Str("environment", environment).
		Str("weights", assignment.String()).
		Msg("traffic weights applied")
	return nil
}

// Current returns a copy of the last applied assignment, if any.
func (s *Splitter) Current(environment string) (Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignment, ok := s.current[environment]
	if !ok {
		return nil, false
	}
	out := make(Assignment, len(assignment))
	for name, weight := range assignment {
		out[name] = weight
	}
	return out, true
}
