package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultHipChatBaseURL = "https://api.hipchat.com"
	defaultHipChatEmoji   = "(yey)"
	defaultHipChatColor   = "green"
)

// HipChatConfig configures the [HipChat] channel.
type HipChatConfig struct {
	// BaseURL defaults to https://api.hipchat.com.
	BaseURL string
	Auth    string
	Room    string
	Emoji   string
	Color   string
}

// HipChat sends room notifications.
type HipChat struct {
	webhook
	cfg HipChatConfig
}

var _ Channel = (*HipChat)(nil)

// NewHipChat creates a HipChat channel.
func NewHipChat(cfg HipChatConfig, opts WebhookOptions) *HipChat {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHipChatBaseURL
	}
	if cfg.Emoji == "" {
		cfg.Emoji = defaultHipChatEmoji
	}
	if cfg.Color == "" {
		cfg.Color = defaultHipChatColor
	}
	return &HipChat{webhook: newWebhook("hipchat", opts), cfg: cfg}
}

// Name implements [Channel].
func (h *HipChat) Name() string {
	return h.name
}

type hipChatMessage struct {
	Color         string `json:"color"`
	Message       string `json:"message"`
	Notify        bool   `json:"notify"`
	MessageFormat string `json:"message_format"`
}

// Send implements [Channel].
func (h *HipChat) Send(ctx context.Context, message string) error {
	if h.onlyLog {
		h.logger.Debug("hipchat message (log only)", "message", message, "color", h.cfg.Color)
		return nil
	}

	return h.postJSON(ctx, h.endpoint(), hipChatMessage{
		Color:         h.cfg.Color,
		Message:       message + " " + h.cfg.Emoji,
		Notify:        true,
		MessageFormat: "text",
	}, "application/json")
}

func (h *HipChat) endpoint() string {
	return fmt.Sprintf("%s/v2/room/%s/notification?auth_token=%s",
		strings.TrimRight(h.cfg.BaseURL, "/"), url.PathEscape(h.cfg.Room), url.QueryEscape(h.cfg.Auth))
}
