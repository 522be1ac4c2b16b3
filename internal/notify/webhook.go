package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"source":"{{ .Source }}","alerts":{{ toJson .Alerts }}}`

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Source      string
	Alerts      []alert.Alert
	GeneratedAt time.Time
}

// WebhookNotifier sends alerts to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *poster
}

// NewWebhookNotifier creates a webhook notifier with the provided template.
// An empty URL yields a nil notifier, which Notify tolerates.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL, tmpl string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newPoster(logger, "webhook", webhookURL, "application/json", defaultTiming),
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, alerts []alert.Alert) error {
	if n == nil || len(alerts) == 0 {
		return nil
	}
	source := alerts[0].Source

	if err := n.poster.waitForRateLimit(ctx, source); err != nil {
		return err
	}

	payload := WebhookPayload{
		Source:      source,
		Alerts:      alerts,
		GeneratedAt: time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := n.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.postWithRetry(ctx, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("source", source).
		Int("alerts", len(alerts)).
		Msg("webhook notification sent")

	return nil
}
