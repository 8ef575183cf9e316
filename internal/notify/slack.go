package notify

import (
	"context"
	"log"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/switchman/internal/sync"
)

// slackPoster abstracts the one Slack call we make, enabling test mocks.
type slackPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts run summaries to an incoming-webhook URL.
type Slack struct {
	webhookURL string
	post       slackPoster
}

// NewSlack creates a Slack notifier for the given incoming-webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		post:       slackapi.PostWebhookContext,
	}
}

func (s *Slack) RunCompleted(ctx context.Context, sum sync.Summary) {
	msg := &slackapi.WebhookMessage{Text: FormatSummary(sum)}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		log.Printf("notify: slack webhook: %v", err)
	}
}
