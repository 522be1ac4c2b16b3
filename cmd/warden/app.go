package main

import (
	"github.com/opsforge/warden/internal/backup"
	"github.com/opsforge/warden/internal/config"
	"github.com/opsforge/warden/internal/healthcheck"
	"github.com/opsforge/warden/internal/logging"
	"github.com/opsforge/warden/internal/metrics"
	"github.com/opsforge/warden/internal/metricsquery"
	"github.com/opsforge/warden/internal/notify"
	"github.com/opsforge/warden/internal/platform"
	"github.com/opsforge/warden/internal/probe"
	"github.com/opsforge/warden/internal/report"
	"github.com/opsforge/warden/internal/state"
	"github.com/opsforge/warden/internal/traffic"
	"github.com/rs/zerolog"
)

// app bundles the wired collaborators shared by both subcommands.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	client     *platform.HTTPClient
	splitter   *traffic.Splitter
	prober     *probe.Prober
	evaluator  metricsquery.Evaluator
	dispatcher *notify.Dispatcher
	states     *state.FileStore
	backups    *backup.FileStore
	sink       report.Sink
	tracker    *healthcheck.Tracker
	collector  *metrics.Metrics
}

func newApp(dryRun bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New()

	collector := metrics.New()
	tracker := healthcheck.NewTracker()

	client, err := platform.NewHTTPClient(logger, cfg.PlatformURL,
		platform.WithErrorHook(collector.IncPlatformAPIErrors))
	if err != nil {
		return nil, err
	}

	var evaluator metricsquery.Evaluator
	if cfg.MetricsURL != "" {
		httpEvaluator, err := metricsquery.NewHTTPEvaluator(logger, cfg.MetricsURL)
		if err != nil {
			return nil, err
		}
		evaluator = httpEvaluator
	}

	slack := notify.NewSlackNotifier(logger, cfg.Notification.SlackWebhookURL)
	webhook, err := notify.NewWebhookNotifier(logger, cfg.Notification.WebhookURL, cfg.Notification.WebhookTemplate)
	if err != nil {
		return nil, err
	}
	channels := []notify.Notifier{slack}
	if webhook != nil {
		channels = append(channels, webhook)
	}
	var notifier notify.Notifier = notify.NewMultiNotifier(channels...)
	if dryRun {
		notifier = notify.NewDryRunNotifier(logger, notifier)
	}
	dispatcher := notify.NewDispatcher(logger, notifier,
		notify.WithAlertHook(collector.IncAlertsTotal))

	var sink report.Sink = report.NewFileSink(cfg.ReportDir, logger)
	if dryRun {
		sink = report.NewLogSink(logger)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		splitter:   traffic.NewSplitter(logger, client),
		prober:     probe.New(logger, client),
		evaluator:  evaluator,
		dispatcher: dispatcher,
		states:     state.NewFileStore(cfg.StatePath, logger),
		backups:    backup.NewFileStore(cfg.BackupDir, logger),
		sink:       sink,
		tracker:    tracker,
		collector:  collector,
	}, nil
}

func (a *app) close() {
	if err := a.client.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing platform client failed")
	}
}
