package notify

import (
	"context"

	"github.com/opsforge/warden/internal/alert"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs alerts without sending them.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, alerts []alert.Alert) error {
	for _, a := range alerts {
		n.logger.Info().
			Str("source", a.Source).
			Str("type", a.Type).
			Str("severity", string(a.Severity)).
			Str("message", a.Message).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
