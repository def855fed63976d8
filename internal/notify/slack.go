package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// Notifier posts the run summary to a Slack channel. Nil-safe: an
// unconfigured notifier quietly does nothing, the printed summary remains
// the source of truth.
type Notifier struct {
	api     *slack.Client
	channel string
}

func NewNotifier(botToken, channel string) *Notifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &Notifier{api: slack.New(botToken), channel: channel}
}

func (n *Notifier) Post(ctx context.Context, text string) error {
	if n == nil {
		return nil
	}
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("posting run summary to %s: %w", n.channel, err)
	}
	log.Printf("slack summary posted channel=%s size=%d", n.channel, len(text))
	return nil
}
