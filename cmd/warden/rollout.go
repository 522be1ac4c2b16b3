package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opsforge/warden/internal/registry"
	"github.com/opsforge/warden/internal/rollout"
	"github.com/opsforge/warden/internal/server"
	"github.com/spf13/cobra"
)

var (
	rolloutEnvironment    string
	rolloutStrategy       string
	rolloutVersion        string
	rolloutCanaryPct      int
	rolloutCanaryDuration time.Duration
	rolloutThreshold      float64
	rolloutLatency        float64
	rolloutManual         bool
	rolloutDryRun         bool

	rolloutCmd = &cobra.Command{
		Use:   "rollout",
		Short: "Roll out a new version with a canary or blue-green strategy",
		RunE:  runRollout,
	}
)

func init() {
	flags := rolloutCmd.Flags()
	flags.StringVarP(&rolloutEnvironment, "environment", "e", "", "target environment")
	flags.StringVarP(&rolloutStrategy, "strategy", "s", string(rollout.StrategyCanary), "rollout strategy: rolling, blue-green or canary")
	flags.StringVar(&rolloutVersion, "version", "", "version to release")
	flags.IntVar(&rolloutCanaryPct, "canary-percentage", 10, "canary traffic percentage (1-50)")
	flags.DurationVar(&rolloutCanaryDuration, "canary-duration", 0, "override the canary monitoring duration")
	flags.Float64Var(&rolloutThreshold, "rollback-threshold", -1, "error-rate percent that triggers rollback")
	flags.Float64Var(&rolloutLatency, "latency-threshold", 0, "p95 latency warning threshold in ms (0 disables the probe)")
	flags.BoolVar(&rolloutManual, "manual-promotion", false, "require operator confirmation before promoting")
	flags.BoolVar(&rolloutDryRun, "dry-run", false, "report the plan without touching the platform")
	_ = rolloutCmd.MarkFlagRequired("environment")
	_ = rolloutCmd.MarkFlagRequired("version")

	rootCmd.AddCommand(rolloutCmd)
}

func runRollout(cmd *cobra.Command, _ []string) error {
	a, err := newApp(rolloutDryRun)
	if err != nil {
		return err
	}
	defer a.close()

	if rolloutCanaryDuration > 0 {
		a.cfg.Rollout.CanaryDuration = rolloutCanaryDuration
	}
	if rolloutThreshold >= 0 {
		a.cfg.Rollout.RollbackThreshold = rolloutThreshold
	}

	strategy := rollout.Strategy(rolloutStrategy)
	if strategy == rollout.StrategyCanary && a.evaluator == nil && !rolloutDryRun {
		return errors.New("WDN_METRICS_URL must be set for canary rollouts")
	}

	services, err := registry.Load(a.cfg.RegistryPath)
	if err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.RegistryPath).Msg("registry unavailable, sub-service health checks disabled")
		services = nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Start(ctx, a.logger, a.cfg.Rollout.MonitorInterval, a.tracker, a.collector, a.cfg.HealthPort, a.cfg.MetricsPort)

	controller := rollout.New(
		a.logger,
		a.cfg.Rollout,
		a.client,
		a.splitter,
		a.evaluator,
		a.prober,
		a.dispatcher,
		a.states,
		a.sink,
		rollout.WithRegistry(services),
		rollout.WithTracker(a.tracker),
		rollout.WithMetrics(a.collector),
		rollout.WithConfirm(stdinConfirm),
	)

	_, err = controller.Execute(ctx, rollout.Params{
		Environment:      rolloutEnvironment,
		Strategy:         strategy,
		Version:          rolloutVersion,
		CanaryPercentage: rolloutCanaryPct,
		ManualPromotion:  rolloutManual,
		DryRun:           rolloutDryRun,
		LatencyThreshold: rolloutLatency,
	})
	return err
}

func stdinConfirm(_ context.Context, prompt string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
