// Package alert delivers best-effort notifications to an external chat
// channel. Delivery failures are logged and never propagated: an alert
// outage must not affect the request path.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const deliveryTimeout = 5 * time.Second

// Embed colors used by Discord for severity.
const (
	colorWarning  = 0xE67E22
	colorCritical = 0xE74C3C
)

// Notifier fires threshold and state-change alerts. Implementations
// must swallow their own failures.
type Notifier interface {
	HighLatency(ctx context.Context, took, threshold time.Duration)
	DatabaseDisconnected(ctx context.Context, cause error)
}

// DiscordNotifier posts embed payloads to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: deliveryTimeout},
	}
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

func (n *DiscordNotifier) HighLatency(ctx context.Context, took, threshold time.Duration) {
	n.send(ctx, discordEmbed{
		Title: "High inference latency",
		Description: fmt.Sprintf("Inference took %dms (threshold %dms)",
			took.Milliseconds(), threshold.Milliseconds()),
		Color: colorWarning,
	})
}

func (n *DiscordNotifier) DatabaseDisconnected(ctx context.Context, cause error) {
	n.send(ctx, discordEmbed{
		Title:       "Database disconnected",
		Description: fmt.Sprintf("Feedback store unreachable: %v", cause),
		Color:       colorCritical,
	})
}

func (n *DiscordNotifier) send(ctx context.Context, embed discordEmbed) {
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		slog.Error("alert payload marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		slog.Error("alert request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("alert delivery failed", "title", embed.Title, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("alert rejected by webhook", "title", embed.Title, "status", resp.StatusCode)
	}
}

// NopNotifier discards every alert. Injected when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) HighLatency(context.Context, time.Duration, time.Duration) {}
func (NopNotifier) DatabaseDisconnected(context.Context, error)               {}

var _ Notifier = (*DiscordNotifier)(nil)
var _ Notifier = NopNotifier{}
