// Package sched runs the background sweeps: notification retention,
// due-date reminders, overdue flagging and failed-notification retry.
// Every job is isolated; a failing or panicking sweep is logged and the
// schedule keeps running.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskhub/taskhub-api/internal/config"
)

// TaskSweeper is the slice of the workflow engine the scheduler drives.
type TaskSweeper interface {
	FlagOverdueTasks(ctx context.Context) (int, error)
	SendDueReminders(ctx context.Context) (int, error)
}

// RetentionSweeper deletes notifications older than the retention window.
type RetentionSweeper interface {
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// FailedRetrier re-publishes stored failed notifications.
type FailedRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner and the sweep registrations.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.SchedConfig
	retention time.Duration
	tasks     TaskSweeper
	notifs    RetentionSweeper
	retrier   FailedRetrier
	logger    *slog.Logger
}

// New creates a Scheduler. retentionDays bounds how long notifications are
// kept before the retention sweep deletes them.
func New(
	cfg config.SchedConfig,
	retentionDays int,
	tasks TaskSweeper,
	notifs RetentionSweeper,
	retrier FailedRetrier,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}

	return &Scheduler{
		cron:      cron.New(),
		cfg:       cfg,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		tasks:     tasks,
		notifs:    notifs,
		retrier:   retrier,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the sweeps and launches the cron runner.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"notification_retention", s.cfg.RetentionCron, s.sweepRetention},
		{"due_reminders", s.cfg.ReminderCron, s.sweepReminders},
		{"overdue_flagging", s.cfg.OverdueInterval, s.sweepOverdue},
		{"failed_notification_retry", s.cfg.RetryInterval, s.sweepRetry},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() { s.runJob(job.name, job.run) })
		if err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", job.name, job.spec, err)
		}
		s.logger.Info("sweep scheduled", "job", job.name, "spec", job.spec)
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for running sweeps to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runJob executes one sweep with panic isolation. Errors never propagate
// past here; the next tick gets a fresh attempt.
func (s *Scheduler) runJob(name string, run func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked", "job", name, "panic", r)
		}
	}()

	started := time.Now()
	if err := run(context.Background()); err != nil {
		s.logger.Error("sweep failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("sweep completed",
		"job", name,
		"duration_ms", time.Since(started).Milliseconds())
}

func (s *Scheduler) sweepRetention(ctx context.Context) error {
	deleted, err := s.notifs.DeleteOlderThan(ctx, s.retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.logger.Info("retention sweep deleted notifications", "count", deleted)
	}
	return nil
}

func (s *Scheduler) sweepReminders(ctx context.Context) error {
	sent, err := s.tasks.SendDueReminders(ctx)
	if err != nil {
		return err
	}
	if sent > 0 {
		s.logger.Info("reminder sweep enqueued notifications", "count", sent)
	}
	return nil
}

func (s *Scheduler) sweepOverdue(ctx context.Context) error {
	flagged, err := s.tasks.FlagOverdueTasks(ctx)
	if err != nil {
		return err
	}
	if flagged > 0 {
		s.logger.Info("overdue sweep flagged tasks", "count", flagged)
	}
	return nil
}

func (s *Scheduler) sweepRetry(ctx context.Context) error {
	retried, err := s.retrier.RetryFailed(ctx)
	if err != nil {
		return err
	}
	if retried > 0 {
		s.logger.Info("retry sweep re-published notifications", "count", retried)
	}
	return nil
}
