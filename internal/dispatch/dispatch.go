// Package dispatch renders and forwards final alerts. The sink never errors
// on a down channel; it reports the subset of alert ids it delivered and the
// engine marks only those rows sent.
package dispatch

import (
	"context"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/pkg/logger"
)

// Sink forwards alerts and reports which ones were delivered
type Sink interface {
	Send(ctx context.Context, alerts []models.Alert) map[string]struct{}
}

var _ Sink = (*Dispatcher)(nil)

// Config holds dispatch settings
type Config struct {
	Enabled         bool
	Channel         string
	SlackWebhookURL string
}

// Dispatcher logs every alert to the console and optionally forwards to
// Slack when the slack channel is enabled.
type Dispatcher struct {
	cfg   Config
	slack *SlackWebhook
	log   *logger.Logger
}

// New creates a dispatcher. The Slack webhook client is only constructed
// when a URL is configured.
func New(cfg Config, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		cfg: cfg,
		log: log.WithComponent("dispatch"),
	}
	if cfg.SlackWebhookURL != "" {
		d.slack = NewSlackWebhook(cfg.SlackWebhookURL, log)
	}
	return d
}

// Send logs the alerts and forwards them to Slack when enabled. It returns
// the ids that were delivered; a disabled or failing channel yields an
// empty set, never an error.
func (d *Dispatcher) Send(ctx context.Context, alerts []models.Alert) map[string]struct{} {
	sent := make(map[string]struct{})
	if len(alerts) == 0 {
		d.log.Info().Msg("No alerts generated")
		return sent
	}

	for _, alert := range alerts {
		d.log.Info().
			Str("company", alert.CompanyName).
			Str("trigger", alert.TriggerName).
			Str("contact_owner", alert.ContactOwner).
			Str("source", alert.Source).
			Str("url", alert.ArticleURL).
			Msg("ALERT")
	}

	if !d.cfg.Enabled {
		d.log.Info().Msg("Dispatch disabled")
		return sent
	}
	if d.cfg.Channel != "slack" || d.slack == nil {
		if d.cfg.Channel == "slack" {
			d.log.Warn().Msg("Slack webhook URL not set, skipping dispatch")
		}
		return sent
	}

	for _, alert := range alerts {
		if err := d.slack.Post(ctx, formatSlackText(alert)); err != nil {
			d.log.Warn().Err(err).Str("alert_id", alert.AlertID).Msg("Slack send failed")
			continue
		}
		sent[alert.AlertID] = struct{}{}
	}
	return sent
}

func formatSlackText(alert models.Alert) string {
	return "[" + alert.TriggerName + "] " + alert.CompanyName + " | " +
		alert.ContactOwner + " | " + alert.Source + " | " + alert.ArticleURL
}
