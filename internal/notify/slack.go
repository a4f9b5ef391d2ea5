package notify

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/slack-go/slack"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// SlackNotifier posts best-effort summary messages to a single channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) Send(message, severity string) error {
	attachment := slack.Attachment{
		Color:  severityColor(severity),
		Text:   message,
		Footer: "reportdesk",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionAttachments(attachment),
	)
	return err
}

func severityColor(severity string) string {
	switch severity {
	case SeverityError:
		return "#ff0000"
	case SeverityWarning:
		return "#ffcc00"
	default:
		return "#36a64f"
	}
}
