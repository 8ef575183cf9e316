package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/switchman/internal/sync"
)

// discordExecutor abstracts the discordgo webhook call, enabling test mocks.
type discordExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts run summaries through a channel webhook.
type Discord struct {
	webhookID string
	token     string
	exec      discordExecutor
}

// NewDiscord creates a Discord notifier from a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}. Webhook execution
// needs no bot token, so the session is created unauthenticated.
func NewDiscord(webhookURL string) (*Discord, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{webhookID: id, token: token, exec: sess}, nil
}

func (d *Discord) RunCompleted(ctx context.Context, sum sync.Summary) {
	params := &discordgo.WebhookParams{Content: FormatSummary(sum)}
	if _, err := d.exec.WebhookExecute(d.webhookID, d.token, false, params); err != nil {
		log.Printf("notify: discord webhook: %v", err)
	}
}

// parseWebhookURL splits a Discord webhook URL into its id and token
// path segments.
func parseWebhookURL(webhookURL string) (id, token string, err error) {
	const marker = "/webhooks/"
	i := strings.Index(webhookURL, marker)
	if i < 0 {
		return "", "", fmt.Errorf("notify: %q is not a discord webhook URL", webhookURL)
	}
	rest := strings.TrimSuffix(webhookURL[i+len(marker):], "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("notify: %q is not a discord webhook URL", webhookURL)
	}
	return parts[0], parts[1], nil
}
