package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsforge/warden/internal/alert"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// header block + context block in each message
	slackReservedBlocks = 2
	slackMaxAlerts      = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	poster *poster
	timing timingConfig
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier, or a noop notifier when the
// webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	notifier := &SlackNotifier{
		logger: logger,
		timing: defaultTiming,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	notifier.poster = newPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	source := alerts[0].Source

	if err := n.poster.waitForRateLimit(ctx, source); err != nil {
		return err
	}

	for _, message := range buildSlackMessages(source, alerts) {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.postWithRetry(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Str("source", source).
		Int("alerts", len(alerts)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessages(source string, alerts []alert.Alert) []slack.WebhookMessage {
	total := len(alerts)
	chunkTotal := (total + slackMaxAlerts - 1) / slackMaxAlerts
	messages := make([]slack.WebhookMessage, 0, chunkTotal)

	for i := 0; i < total; i += slackMaxAlerts {
		end := i + slackMaxAlerts
		if end > total {
			end = total
		}
		part := (i / slackMaxAlerts) + 1
		messages = append(messages, buildSlackMessage(source, alerts[i:end], total, part, chunkTotal))
	}
	return messages
}

func buildSlackMessage(source string, alerts []alert.Alert, total, part, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("%s: %d alert(s)", source, total)
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, part, partTotal)
	}

	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Source: *%s*", source), false, false),
	}
	if partTotal > 1 {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Batch: %d/%d", part, partTotal), false, false))
	}

	blocks := []slack.Block{header, slack.NewContextBlock("", contextElements...)}
	for _, a := range alerts {
		blocks = append(blocks, buildAlertBlock(a))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildAlertBlock(a alert.Alert) slack.Block {
	title := fmt.Sprintf("%s *%s*: %s", severityEmoji(a.Severity), a.Type, a.Message)
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Severity:*\n%s", a.Severity), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*At:*\n%s", a.Timestamp.Format(time.RFC3339)), false, false),
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func severityEmoji(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return ":rotating_light:"
	case alert.SeverityHigh:
		return ":red_circle:"
	case alert.SeverityWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}
