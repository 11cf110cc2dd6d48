package slack

import (
	"context"
	"fmt"

	"github.com/mediatechnologycenter/api-commons/pkg/core/logger"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Client posts notifications to a single channel.
type Client struct {
	api     *slack.Client
	channel string
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Client{
		api:     slack.New(cfg.Token, opts...),
		channel: cfg.Channel,
	}, nil
}

// PostMessage sends message under a header block holding title. The message
// is rendered as mrkdwn and doubles as the notification fallback text.
func (c *Client) PostMessage(ctx context.Context, title, message string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, c.channel,
		slack.MsgOptionText(message, false),
		slack.MsgOptionBlocks(
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, message, false, false), nil, nil),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post slack message to %s: %w", c.channel, err)
	}

	logger.Get(ctx).Debug("posted slack message", zap.String("channel", c.channel), zap.String("ts", ts))
	return ts, nil
}

// Check verifies the token against the auth.test endpoint.
func (c *Client) Check(ctx context.Context) error {
	if _, err := c.api.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack auth check failed: %w", err)
	}
	return nil
}
