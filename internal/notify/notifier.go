package notify

import (
	"context"

	"github.com/opsforge/warden/internal/alert"
)

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []alert.Alert) error
}
