package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// testDB opens the integration database named by TASKHUB_TEST_DATABASE_URL,
// skipping the test when it is unset. The schema must be migrated; the
// helper wipes the tables so every test starts clean.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TASKHUB_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TASKHUB_TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	_, err = db.Exec(`TRUNCATE tasks, task_extensions, notifications, failed_notifications RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func insertTestTask(t *testing.T, ts *PostgresTaskStore) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(
		"Quarterly report",
		"Compile the Q3 numbers",
		uuid.New(),
		uuid.New(),
		domain.PriorityHigh,
		time.Now().UTC().AddDate(0, 0, 7),
	)
	require.NoError(t, err)
	require.NoError(t, ts.Create(context.Background(), task))
	require.NotZero(t, task.ID)
	return task
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	db := testDB(t)
	ts := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := insertTestTask(t, ts)

	got, err := ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, task.AssigneeID, got.AssigneeID)
	assert.Equal(t, domain.TaskStatusAssigned, got.Status)
	assert.Nil(t, got.Extension)
	assert.True(t, got.DueDate.Equal(task.DueDate))

	_, err = ts.GetByID(ctx, task.ID+999)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreUpdateLifecycle(t *testing.T) {
	db := testDB(t)
	ts := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := insertTestTask(t, ts)

	require.NoError(t, task.Submit("done", "https://example.com/pr/1"))
	require.NoError(t, ts.Update(ctx, task))

	got, err := ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSubmitted, got.Status)
	assert.Equal(t, "done", got.CompletionNote)

	require.NoError(t, got.ApproveSubmission(time.Now().UTC()))
	require.NoError(t, ts.Update(ctx, got))

	got, err = ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Updating a vanished row reports not-found.
	gone := *got
	gone.ID = got.ID + 999
	assert.ErrorIs(t, ts.Update(ctx, &gone), store.ErrTaskNotFound)
}

func TestTaskStoreExtensionRoundTrip(t *testing.T) {
	db := testDB(t)
	ts := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := insertTestTask(t, ts)
	task.DueDate = domain.DateOnly(time.Now().UTC().AddDate(0, 0, -2))
	require.NoError(t, ts.Update(ctx, task))

	now := time.Now().UTC()
	require.NoError(t, task.RequestExtension("sick leave", now.AddDate(0, 0, 5), now))
	require.NoError(t, ts.Update(ctx, task))
	require.NotZero(t, task.Extension.ID)

	got, err := ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Extension)
	assert.Equal(t, domain.ExtensionStatusPending, got.Extension.Status)
	assert.Equal(t, "sick leave", got.Extension.Reason)

	// The unique back-reference rejects a second insert for the same task.
	fresh, err := ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	fresh.Extension = &domain.TaskExtension{
		TaskID:           task.ID,
		RequestedDueDate: domain.DateOnly(now.AddDate(0, 0, 9)),
		Reason:           "again",
		Status:           domain.ExtensionStatusPending,
	}
	assert.ErrorIs(t, ts.Update(ctx, fresh), store.ErrExtensionExists)

	// Approving mutates the existing row instead of inserting.
	require.NoError(t, got.ApproveExtension())
	require.NoError(t, ts.Update(ctx, got))

	got, err = ts.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtensionStatusApproved, got.Extension.Status)
}

func TestTaskStoreDeleteCascadesExtension(t *testing.T) {
	db := testDB(t)
	ts := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := insertTestTask(t, ts)
	task.DueDate = domain.DateOnly(time.Now().UTC().AddDate(0, 0, -2))
	now := time.Now().UTC()
	require.NoError(t, task.RequestExtension("late", now.AddDate(0, 0, 5), now))
	require.NoError(t, ts.Update(ctx, task))

	require.NoError(t, ts.Delete(ctx, task.ID))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_extensions`).Scan(&count))
	assert.Zero(t, count, "extension rows must cascade with the task")

	assert.ErrorIs(t, ts.Delete(ctx, task.ID), store.ErrTaskNotFound)
}

func TestTaskStoreListings(t *testing.T) {
	db := testDB(t)
	ts := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	managerID := uuid.New()
	workerID := uuid.New()

	mk := func(due time.Time) *domain.Task {
		task, err := domain.NewTask("t", "d", workerID, managerID, domain.PriorityLow, due)
		require.NoError(t, err)
		require.NoError(t, ts.Create(ctx, task))
		return task
	}

	overdue := mk(time.Now().UTC().AddDate(0, 0, 7))
	mk(time.Now().UTC().AddDate(0, 1, 0))
	insertTestTask(t, ts) // someone else's task

	// Backdate one due date below today.
	_, err := db.Exec(`UPDATE tasks SET due_date = CURRENT_DATE - 2 WHERE id = $1`, overdue.ID)
	require.NoError(t, err)

	byManager, err := ts.ListByManager(ctx, managerID)
	require.NoError(t, err)
	assert.Len(t, byManager, 2)

	byAssignee, err := ts.ListByAssignee(ctx, workerID)
	require.NoError(t, err)
	assert.Len(t, byAssignee, 2)

	all, err := ts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	due, err := ts.ListDueBefore(ctx, domain.DateOnly(time.Now().UTC()))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.ID, due[0].ID)

	// Completed tasks drop out of the due listing.
	submitted, err := ts.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	require.NoError(t, submitted.Submit("done", ""))
	require.NoError(t, submitted.ApproveSubmission(time.Now().UTC()))
	require.NoError(t, ts.Update(ctx, submitted))

	due, err = ts.ListDueBefore(ctx, domain.DateOnly(time.Now().UTC()))
	require.NoError(t, err)
	assert.Empty(t, due)
}
