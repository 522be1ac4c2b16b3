package notify

import (
	"context"

	"github.com/opsforge/warden/internal/alert"
)

// MultiNotifier fans out to multiple channels. Channels are independent: a
// failing channel never prevents delivery to the others.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that dispatches to all provided
// notifiers, skipping nils.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	filtered := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier == nil {
			continue
		}
		filtered = append(filtered, notifier)
	}
	return &MultiNotifier{notifiers: filtered}
}

// Notify implements Notifier. All channels are attempted; the first error is
// returned after the fan-out completes.
func (m *MultiNotifier) Notify(ctx context.Context, alerts []alert.Alert) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, alerts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
