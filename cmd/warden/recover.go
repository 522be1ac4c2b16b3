package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/opsforge/warden/internal/recovery"
	"github.com/opsforge/warden/internal/registry"
	"github.com/opsforge/warden/internal/server"
	"github.com/spf13/cobra"
)

var (
	recoverDisaster string
	recoverDryRun   bool
	recoverWorkDir  string

	recoverCmd = &cobra.Command{
		Use:   "recover",
		Short: "Run dependency-ordered disaster recovery over the service registry",
		RunE:  runRecover,
	}
)

func init() {
	flags := recoverCmd.Flags()
	flags.StringVarP(&recoverDisaster, "disaster", "d", "", "disaster type driving this recovery session")
	flags.BoolVar(&recoverDryRun, "dry-run", false, "report the plan without executing recovery actions")
	flags.StringVar(&recoverWorkDir, "workdir", "", "working directory for recovery scripts")
	_ = recoverCmd.MarkFlagRequired("disaster")

	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, _ []string) error {
	a, err := newApp(recoverDryRun)
	if err != nil {
		return err
	}
	defer a.close()

	services, err := registry.Load(a.cfg.RegistryPath)
	if err != nil {
		return err
	}

	var runner recovery.ActionRunner = recovery.NewScriptRunner(
		a.logger,
		recovery.WithWorkDir(recoverWorkDir),
		recovery.WithBackupStore(a.backups),
	)
	if recoverDryRun {
		runner = recovery.NewDryRunRunner(a.logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Start(ctx, a.logger, a.cfg.Recovery.VerifyInterval, a.tracker, a.collector, a.cfg.HealthPort, a.cfg.MetricsPort)

	orchestrator := recovery.NewOrchestrator(
		a.logger,
		a.cfg.Recovery,
		a.prober,
		runner,
		a.dispatcher,
		a.sink,
		recovery.WithBackups(a.backups),
		recovery.WithTracker(a.tracker),
		recovery.WithMetrics(a.collector),
	)

	_, err = orchestrator.Execute(ctx, services, recoverDisaster, recoverDryRun)
	return err
}
