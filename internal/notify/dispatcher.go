package notify

import (
	"context"
	"sync"

	"github.com/opsforge/warden/internal/alert"
	"github.com/rs/zerolog"
)

// Dispatcher is the best-effort front door for alerting. It suppresses
// duplicates within the dedup window, fans out to the configured channels,
// and records every accepted alert for the run report. Delivery failures are
// logged, never propagated.
type Dispatcher struct {
	logger   zerolog.Logger
	notifier Notifier
	dedup    *alert.Deduper
	onAlert  func(severity string)
	mu       sync.Mutex
	events   []alert.Alert
}

// DispatcherOption customizes Dispatcher behavior.
type DispatcherOption func(*Dispatcher)

// WithAlertHook registers a callback invoked once per accepted alert,
// typically to bump a counter.
func WithAlertHook(hook func(severity string)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onAlert = hook
	}
}

// WithDeduper overrides the duplicate suppressor (primarily for testing).
func WithDeduper(dedup *alert.Deduper) DispatcherOption {
	return func(d *Dispatcher) {
		d.dedup = dedup
	}
}

// NewDispatcher constructs a Dispatcher over the given notifier.
func NewDispatcher(logger zerolog.Logger, notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	if notifier == nil {
		notifier = NewNoop(logger, "")
	}
	d := &Dispatcher{
		logger:   logger,
		notifier: notifier,
		dedup:    alert.NewDeduper(alert.DefaultSuppressionWindow),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers one alert best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert) {
	if !d.dedup.Allow(a) {
		d.logger.Debug().
			Str("source", a.Source).
			Str("message", a.Message).
			Msg("duplicate alert suppressed")
		return
	}

	d.mu.Lock()
	d.events = append(d.events, a)
	d.mu.Unlock()

	if d.onAlert != nil {
		d.onAlert(string(a.Severity))
	}

	event := d.logger.Info()
	if a.AtLeast(alert.SeverityHigh) {
		event = d.logger.Error()
	} else if a.Severity == alert.SeverityWarning {
		event = d.logger.Warn()
	}
	event.
		Str("source", a.Source).
		Str("type", a.Type).
		Str("severity", string(a.Severity)).
		Msg(a.Message)

	if err := d.notifier.Notify(ctx, []alert.Alert{a}); err != nil {
		d.logger.Warn().
			Err(err).
			Str("source", a.Source).
			Msg("alert delivery failed")
	}
}

// Events returns a copy of all accepted alerts in dispatch order.
func (d *Dispatcher) Events() []alert.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]alert.Alert(nil), d.events...)
}
