package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"
)

// PubNubNotifier tells other consoles watching an event that its ledger
// changed. Publishing is best effort.
type PubNubNotifier struct {
	publish func(channel string, message any) error
	logger  *slog.Logger
}

func NewPubNubNotifier(pn *pubnub.PubNub, logger *slog.Logger) *PubNubNotifier {
	return &PubNubNotifier{
		publish: func(channel string, message any) error {
			_, _, err := pn.Publish().
				Channel(channel).
				Message(message).
				Execute()
			return err
		},
		logger: logger,
	}
}

func eventChannel(eventID string) string {
	return fmt.Sprintf("event-%s", eventID)
}

func (n *PubNubNotifier) Notify(_ context.Context, eventID string, msg Notification) {
	msg.EventID = eventID
	channel := eventChannel(eventID)
	if err := n.publish(channel, msg); err != nil {
		n.logger.Warn("publish failed",
			slog.String("channel", channel), slog.String("type", msg.Type), slog.Any("error", err))
	}
}

// NoopNotifier is used when no PubNub keys are configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, Notification) {}
