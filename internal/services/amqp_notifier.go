package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ActivityQueue receives every console notification for downstream consumers
// such as reporting jobs.
const ActivityQueue = "console.activity"

// DefaultPublishTimeout bounds the dial and publish of one notification.
const DefaultPublishTimeout = 2 * time.Second

// AMQPNotifier publishes notifications as persistent JSON messages. Each
// publish dials its own connection; console mutations are rare enough.
type AMQPNotifier struct {
	publish func(ctx context.Context, body []byte) error
	timeout time.Duration
	logger  *slog.Logger
}

func NewAMQPNotifier(url string, logger *slog.Logger) *AMQPNotifier {
	n := &AMQPNotifier{timeout: DefaultPublishTimeout, logger: logger}
	n.publish = func(ctx context.Context, body []byte) error {
		return publishAMQP(ctx, url, n.timeout, body)
	}
	return n
}

func publishAMQP(ctx context.Context, url string, timeout time.Duration, body []byte) error {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", ActivityQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (n *AMQPNotifier) Notify(ctx context.Context, eventID string, msg Notification) {
	msg.EventID = eventID
	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warn("encode notification failed", slog.String("type", msg.Type), slog.Any("error", err))
		return
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.publish(ctx, body); err != nil {
		n.logger.Warn("activity publish failed",
			slog.String("queue", ActivityQueue), slog.String("type", msg.Type), slog.Any("error", err))
	}
}

// MultiNotifier fans a notification out to every sink in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, eventID string, msg Notification) {
	for _, n := range m {
		n.Notify(ctx, eventID, msg)
	}
}
