package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/news-alert-agent/pkg/logger"
)

const slackTimeout = 5 * time.Second

// SlackWebhook posts messages to a Slack incoming webhook.
type SlackWebhook struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

// NewSlackWebhook creates a webhook client with a short fixed timeout and
// no retries.
func NewSlackWebhook(url string, log *logger.Logger) *SlackWebhook {
	return &SlackWebhook{
		url:    url,
		client: &http.Client{Timeout: slackTimeout},
		log:    log.WithComponent("slack"),
	}
}

// Post sends one text message to the webhook.
func (s *SlackWebhook) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("slack: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
