package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-api/internal/broker"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/mocks"
)

type consumerFixture struct {
	consumer   *Consumer
	notifStore *mocks.NotificationStore
	directory  *mocks.Directory
	pusher     *mocks.Pusher
	dlqLen     func() int64
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()

	_, cli, topic := newTestTopic(t, "notifications", 1)
	deadLetter := broker.NewTopic(cli, "notifications-dlq", 1, nil)

	notifStore := mocks.NewNotificationStore()
	directory := mocks.NewDirectory()
	pusher := mocks.NewPusher()

	return &consumerFixture{
		consumer:   NewConsumer(topic, deadLetter, notifStore, directory, pusher, "test-consumer", nil),
		notifStore: notifStore,
		directory:  directory,
		pusher:     pusher,
		dlqLen: func() int64 {
			n, err := cli.XLen(context.Background(), "notifications-dlq:0").Result()
			if err != nil {
				return 0
			}
			return n
		},
	}
}

func encodeRequest(t *testing.T, recipientID uuid.UUID, message string) broker.Message {
	t.Helper()
	req, err := domain.NewNotificationRequest(recipientID, message)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	value, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return broker.Message{ID: "1-0", Key: recipientID.String(), Value: value}
}

func TestHandlePersistsAndPushes(t *testing.T) {
	f := newConsumerFixture(t)
	user := &domain.User{ID: uuid.New(), Email: "worker@example.com", Role: domain.RoleWorker}
	f.directory.Add(user)

	msg := encodeRequest(t, user.ID, "Task overdue: Quarterly report")

	if err := f.consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored, err := f.notifStore.ListByRecipient(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected 1 stored notification, got %d", len(stored))
	}
	if stored[0].Message != "Task overdue: Quarterly report" {
		t.Errorf("Expected message to be persisted, got %q", stored[0].Message)
	}
	if stored[0].Read {
		t.Error("Expected notification to be unread")
	}

	pushes := f.pusher.Pushes(user.Email)
	if len(pushes) != 1 {
		t.Fatalf("Expected 1 push to %s, got %d", user.Email, len(pushes))
	}
	pushed, ok := pushes[0].(*domain.Notification)
	if !ok {
		t.Fatalf("Expected a *domain.Notification payload, got %T", pushes[0])
	}
	if pushed.ID != stored[0].ID {
		t.Errorf("Expected the persisted row to be pushed, got ID %d", pushed.ID)
	}
}

func TestHandleUnresolvedRecipientDeadLetters(t *testing.T) {
	f := newConsumerFixture(t)

	// Recipient not in the directory.
	msg := encodeRequest(t, uuid.New(), "Extension approved: Quarterly report")

	// nil: the message is acknowledged, not retried.
	if err := f.consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Persisted regardless, so the recipient sees it on next poll.
	if f.notifStore.Len() != 1 {
		t.Errorf("Expected the notification to be persisted, got %d rows", f.notifStore.Len())
	}
	if got := f.dlqLen(); got != 1 {
		t.Errorf("Expected 1 dead-lettered entry, got %d", got)
	}
}

func TestHandleUndecodablePayloadDeadLetters(t *testing.T) {
	f := newConsumerFixture(t)

	msg := broker.Message{ID: "1-0", Key: "garbage", Value: []byte("{not json")}

	if err := f.consumer.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if f.notifStore.Len() != 0 {
		t.Errorf("Expected nothing persisted for a broken payload, got %d rows", f.notifStore.Len())
	}
	if got := f.dlqLen(); got != 1 {
		t.Errorf("Expected 1 dead-lettered entry, got %d", got)
	}
}

func TestHandleStoreFailureLeavesUnacked(t *testing.T) {
	f := newConsumerFixture(t)
	f.notifStore.CreateErr = errors.New("connection reset")

	user := &domain.User{ID: uuid.New(), Email: "worker@example.com", Role: domain.RoleWorker}
	f.directory.Add(user)

	msg := encodeRequest(t, user.ID, "Task removed: Quarterly report")

	// An error leaves the message pending for redelivery.
	if err := f.consumer.Handle(context.Background(), msg); err == nil {
		t.Fatal("Expected an error when persistence fails")
	}
	if len(f.pusher.Pushes(user.Email)) != 0 {
		t.Error("Expected no push when persistence fails")
	}
}

func TestHandlePushFailureLeavesUnacked(t *testing.T) {
	f := newConsumerFixture(t)
	f.pusher.PushErr = errors.New("websocket gone")

	user := &domain.User{ID: uuid.New(), Email: "worker@example.com", Role: domain.RoleWorker}
	f.directory.Add(user)

	msg := encodeRequest(t, user.ID, "Task rejected and reassigned: Quarterly report")

	if err := f.consumer.Handle(context.Background(), msg); err == nil {
		t.Fatal("Expected an error when the push fails")
	}

	// The persisted row stays; redelivery may duplicate it, which is the
	// accepted at-least-once trade-off.
	if f.notifStore.Len() != 1 {
		t.Errorf("Expected the notification to be persisted, got %d rows", f.notifStore.Len())
	}
}
