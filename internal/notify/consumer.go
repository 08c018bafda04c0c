package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/broker"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// ConsumerGroup is the consumer group name on the notification topic.
const ConsumerGroup = "notification-group"

// RecipientResolver resolves a recipient id to its directory identity.
// A nil result means unresolved.
type RecipientResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) *domain.User
}

// RealtimePusher delivers a payload to a per-user private destination.
type RealtimePusher interface {
	Push(address string, payload any) error
}

// Consumer drains the notification topic. For every message it persists the
// notification, resolves the recipient, and either pushes it in real time
// or forwards it to the dead-letter topic. Acknowledgement happens only
// after the full sequence; a crash before ack causes redelivery, so a
// duplicated Notification row is an accepted, bounded side effect.
type Consumer struct {
	topic      *broker.Topic
	deadLetter *broker.Topic
	notifStore store.NotificationStore
	resolver   RecipientResolver
	pusher     RealtimePusher
	consumerID string
	logger     *slog.Logger
}

// NewConsumer creates a Consumer over the given topics.
func NewConsumer(
	topic, deadLetter *broker.Topic,
	notifStore store.NotificationStore,
	resolver RecipientResolver,
	pusher RealtimePusher,
	consumerID string,
	logger *slog.Logger,
) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		topic:      topic,
		deadLetter: deadLetter,
		notifStore: notifStore,
		resolver:   resolver,
		pusher:     pusher,
		consumerID: consumerID,
		logger:     logger.With(slog.String("component", "notification_consumer")),
	}
}

// Run joins the consumer group and processes messages until ctx is
// cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.topic.Consume(ctx, ConsumerGroup, c.consumerID, c.Handle)
}

// Handle processes one broker message through the full delivery sequence.
// Returning nil acknowledges the message.
func (c *Consumer) Handle(ctx context.Context, msg broker.Message) error {
	var req domain.NotificationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		// A payload that cannot be decoded will never succeed; park it on
		// the dead-letter topic instead of redelivering forever.
		c.logger.Error("undecodable notification payload, dead-lettering",
			"entry_id", msg.ID,
			"error", err)
		return c.deadLetter.Publish(ctx, msg.Key, msg.Value)
	}

	log := c.logger.With(slog.String("recipient_id", req.RecipientID.String()))
	log.Debug("notification message received")

	// 1. Persist, always, regardless of the later steps.
	notification := &domain.Notification{
		Message:     req.Message,
		RecipientID: req.RecipientID,
		Read:        req.Read,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.notifStore.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}
	log.Debug("notification persisted", "notification_id", notification.ID)

	// 2. Resolve the recipient through the resilient lookup.
	user := c.resolver.Resolve(ctx, req.RecipientID)

	// 3. Unresolved recipient: forward the original payload to the
	// dead-letter topic and acknowledge. No real-time push is attempted.
	if user == nil {
		log.Warn("recipient unresolved, forwarding to dead-letter topic")
		if err := c.deadLetter.Publish(ctx, msg.Key, msg.Value); err != nil {
			return fmt.Errorf("failed to dead-letter notification: %w", err)
		}
		return nil
	}

	// 4. Push the persisted notification to the recipient's private
	// channel, addressed by the resolved contact identifier.
	if err := c.pusher.Push(user.Email, notification); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}

	log.Debug("real-time notification sent", "address", user.Email)
	return nil
}
