package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// NotificationStore is an in-memory implementation of
// store.NotificationStore.
type NotificationStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Notification
	nextID int64

	CreateErr error
}

// NewNotificationStore creates an empty in-memory notification store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{rows: make(map[int64]*domain.Notification)}
}

// Ensure NotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*NotificationStore)(nil)

// Create implements store.NotificationStore.Create
func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n.ID = s.nextID
	clone := *n
	s.rows[n.ID] = &clone
	return nil
}

// ListByRecipient implements store.NotificationStore.ListByRecipient
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	return s.filter(func(n *domain.Notification) bool { return n.RecipientID == recipientID }), nil
}

// ListUnreadByRecipient implements store.NotificationStore.ListUnreadByRecipient
func (s *NotificationStore) ListUnreadByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	return s.filter(func(n *domain.Notification) bool {
		return n.RecipientID == recipientID && !n.Read
	}), nil
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			n.Read = true
		}
	}
	return nil
}

// DeleteOlderThan implements store.NotificationStore.DeleteOlderThan
func (s *NotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.rows {
		if n.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many notifications are stored.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *NotificationStore) filter(keep func(*domain.Notification) bool) []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.Notification{}
	for _, n := range s.rows {
		if keep(n) {
			clone := *n
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// FailedNotificationStore is an in-memory implementation of
// store.FailedNotificationStore.
type FailedNotificationStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.FailedNotification
	nextID int64

	CreateErr error
}

// NewFailedNotificationStore creates an empty in-memory failed-notification
// store.
func NewFailedNotificationStore() *FailedNotificationStore {
	return &FailedNotificationStore{rows: make(map[int64]*domain.FailedNotification)}
}

// Ensure FailedNotificationStore implements store.FailedNotificationStore interface
var _ store.FailedNotificationStore = (*FailedNotificationStore)(nil)

// Create implements store.FailedNotificationStore.Create
func (s *FailedNotificationStore) Create(ctx context.Context, fn *domain.FailedNotification) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	fn.ID = s.nextID
	clone := *fn
	s.rows[fn.ID] = &clone
	return nil
}

// List implements store.FailedNotificationStore.List
func (s *FailedNotificationStore) List(ctx context.Context) ([]*domain.FailedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.FailedNotification{}
	for _, fn := range s.rows {
		clone := *fn
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements store.FailedNotificationStore.Delete
func (s *FailedNotificationStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("%w: failed notification with ID %d", store.ErrNotificationNotFound, id)
	}
	delete(s.rows, id)
	return nil
}

// Len reports how many failed notifications are stored.
func (s *FailedNotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
