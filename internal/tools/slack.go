package tools

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackMessenger posts step output into Slack channels.
type SlackMessenger struct {
	client *slack.Client
}

func NewSlackMessenger(token string) *SlackMessenger {
	return &SlackMessenger{client: slack.New(token)}
}

func (s *SlackMessenger) Post(ctx context.Context, channel, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	return err
}
