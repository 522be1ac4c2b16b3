package rollout

import "testing"

func TestCanaryReplicas(t *testing.T) {
	tests := []struct {
		name  string
		total int
		pct   int
		want  int
	}{
		{"floor below one clamps", 10, 5, 1},
		{"exact tenth", 10, 10, 1},
		{"quarter of twenty", 20, 25, 5},
		{"half of large fleet", 100, 50, 50},
		{"rounds down", 7, 30, 2},
		{"single replica fleet", 1, 50, 1},
		{"zero total still deploys one", 0, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanaryReplicas(tt.total, tt.pct); got != tt.want {
				t.Fatalf("CanaryReplicas(%d, %d) = %d, want %d", tt.total, tt.pct, got, tt.want)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	base := Params{
		Environment:      "production",
		Strategy:         StrategyCanary,
		Version:          "v2.1.0",
		CanaryPercentage: 10,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"empty environment", func(p *Params) { p.Environment = "" }},
		{"empty version", func(p *Params) { p.Version = "" }},
		{"unknown strategy", func(p *Params) { p.Strategy = "big-bang" }},
		{"percentage zero", func(p *Params) { p.CanaryPercentage = 0 }},
		{"percentage above fifty", func(p *Params) { p.CanaryPercentage = 51 }},
		{"percentage negative", func(p *Params) { p.CanaryPercentage = -5 }},
		{"negative latency threshold", func(p *Params) { p.LatencyThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	// Percentage is only constrained for the canary strategy.
	bg := base
	bg.Strategy = StrategyBlueGreen
	bg.CanaryPercentage = 0
	if err := bg.Validate(); err != nil {
		t.Fatalf("blue-green params rejected: %v", err)
	}
}

func TestOppositeSlot(t *testing.T) {
	if got := OppositeSlot(SlotBlue); got != SlotGreen {
		t.Fatalf("opposite of blue = %s", got)
	}
	if got := OppositeSlot(SlotGreen); got != SlotBlue {
		t.Fatalf("opposite of green = %s", got)
	}
}
