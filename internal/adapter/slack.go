package adapter

import (
	"context"
	"log/slog"
	"os"

	"github.com/harunnryd/statusrole/internal/errors"

	"github.com/slack-go/slack"
)

// SlackAdapter mirrors log lines into a Slack channel.
type SlackAdapter struct {
	botToken string
	client   *slack.Client
}

func NewSlackAdapter(botToken string, options ...slack.Option) *SlackAdapter {
	if botToken == "" {
		botToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	return &SlackAdapter{
		botToken: botToken,
		client:   slack.New(botToken, options...),
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

func (s *SlackAdapter) Send(ctx context.Context, channel string, content string) error {
	_, _, err := s.client.PostMessageContext(ctx, channel, slack.MsgOptionText(content, false))
	if err != nil {
		return errors.Wrap(err, "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", channel)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	if s.client == nil {
		return errors.Transient("Slack client not initialized")
	}
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return errors.Transient("Slack connection failed")
	}
	return nil
}
