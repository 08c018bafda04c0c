package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

func TestNotificationStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	ns := NewPostgresNotificationStore(db, nil)
	ctx := context.Background()

	recipientID := uuid.New()
	otherID := uuid.New()

	older := &domain.Notification{
		Message:     "New task assigned: Quarterly report",
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC().Add(-2 * time.Hour),
	}
	newer := &domain.Notification{
		Message:     "Task overdue: Quarterly report",
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
	foreign := &domain.Notification{
		Message:     "Extension approved: Budget review",
		RecipientID: otherID,
		CreatedAt:   time.Now().UTC(),
	}
	for _, n := range []*domain.Notification{older, newer, foreign} {
		require.NoError(t, ns.Create(ctx, n))
		require.NotZero(t, n.ID)
	}

	listed, err := ns.ListByRecipient(ctx, recipientID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID, "newest first")
	assert.Equal(t, older.ID, listed[1].ID)

	unread, err := ns.ListUnreadByRecipient(ctx, recipientID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, ns.MarkAllRead(ctx, recipientID))

	unread, err = ns.ListUnreadByRecipient(ctx, recipientID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// The other recipient is untouched.
	unread, err = ns.ListUnreadByRecipient(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	// Marking with nothing unread is a no-op, not an error.
	require.NoError(t, ns.MarkAllRead(ctx, recipientID))
}

func TestNotificationStoreRetention(t *testing.T) {
	db := testDB(t)
	ns := NewPostgresNotificationStore(db, nil)
	ctx := context.Background()

	recipientID := uuid.New()
	old := &domain.Notification{
		Message:     "stale",
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC().AddDate(0, 0, -40),
	}
	fresh := &domain.Notification{
		Message:     "fresh",
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, ns.Create(ctx, old))
	require.NoError(t, ns.Create(ctx, fresh))

	deleted, err := ns.DeleteOlderThan(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := ns.ListByRecipient(ctx, recipientID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].Message)
}

func TestFailedNotificationStore(t *testing.T) {
	db := testDB(t)
	fs := NewPostgresFailedNotificationStore(db, nil)
	ctx := context.Background()

	first := &domain.FailedNotification{RecipientID: uuid.New(), Message: "parked one"}
	second := &domain.FailedNotification{RecipientID: uuid.New(), Message: "parked two"}
	require.NoError(t, fs.Create(ctx, first))
	require.NoError(t, fs.Create(ctx, second))

	rows, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "parked one", rows[0].Message)

	require.NoError(t, fs.Delete(ctx, first.ID))

	rows, err = fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.ErrorIs(t, fs.Delete(ctx, first.ID), store.ErrNotificationNotFound)
}
