package notify

import "context"

const defaultSlackEmoji = ":robot:"

// SlackConfig configures the [Slack] channel.
type SlackConfig struct {
	URL     string
	Channel string
	Token   string
	User    string
	Emoji   string
}

// Slack posts messages as a bot user.
type Slack struct {
	webhook
	cfg SlackConfig
}

var _ Channel = (*Slack)(nil)

// NewSlack creates a Slack channel. An empty Emoji uses ":robot:".
func NewSlack(cfg SlackConfig, opts WebhookOptions) *Slack {
	if cfg.Emoji == "" {
		cfg.Emoji = defaultSlackEmoji
	}
	return &Slack{webhook: newWebhook("slack", opts), cfg: cfg}
}

// Name implements [Channel].
func (s *Slack) Name() string {
	return s.name
}

type slackMessage struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	AsUser    bool   `json:"as_user"`
	IconEmoji string `json:"icon_emoji"`
	Username  string `json:"username"`
	Text      string `json:"text"`
}

// Send implements [Channel].
func (s *Slack) Send(ctx context.Context, message string) error {
	if s.onlyLog {
		s.logger.Debug("slack message (log only)", "message", message)
		return nil
	}

	return s.postJSON(ctx, s.cfg.URL, slackMessage{
		Token:     s.cfg.Token,
		Channel:   s.cfg.Channel,
		AsUser:    true,
		IconEmoji: s.cfg.Emoji,
		Username:  s.cfg.User,
		Text:      message,
	}, "application/json; charset=utf-8")
}
