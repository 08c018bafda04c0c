// Package notify implements the asynchronous notification pipeline: a
// fire-and-forget publisher feeding the broker topic, the consumer group
// draining it, and the real-time channel notifications are pushed to.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/taskhub/taskhub-api/internal/broker"
	"github.com/taskhub/taskhub-api/internal/domain"
	"github.com/taskhub/taskhub-api/internal/store"
)

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	// QueueSize determines the buffer size for the in-memory publish queue.
	QueueSize int

	// WorkerCount determines how many workers drain the queue.
	WorkerCount int
}

// DefaultPublisherConfig returns a PublisherConfig with reasonable defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		QueueSize:   256,
		WorkerCount: 2,
	}
}

// Publisher hands notification requests to the broker topic without ever
// blocking or failing the workflow operation that triggered them. Requests
// are queued and published by background workers; a request that cannot
// reach the broker is persisted as a FailedNotification for the retry sweep.
type Publisher struct {
	topic       *broker.Topic
	failedStore store.FailedNotificationStore
	queue       chan *domain.NotificationRequest
	ctx         context.Context
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup
	config      PublisherConfig
	logger      *slog.Logger
}

// NewPublisher creates a Publisher over the given topic.
func NewPublisher(
	topic *broker.Topic,
	failedStore store.FailedNotificationStore,
	config PublisherConfig,
	logger *slog.Logger,
) *Publisher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultPublisherConfig().QueueSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultPublisherConfig().WorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		topic:       topic,
		failedStore: failedStore,
		queue:       make(chan *domain.NotificationRequest, config.QueueSize),
		ctx:         ctx,
		cancelFunc:  cancel,
		config:      config,
		logger:      logger.With(slog.String("component", "notification_publisher")),
	}
}

// Start launches the publish workers.
func (p *Publisher) Start() {
	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains in-flight work and shuts the workers down.
func (p *Publisher) Stop() {
	p.cancelFunc()
	p.wg.Wait()
}

// Publish enqueues the request and returns immediately. The outcome of the
// broker write is only logged, never propagated: a delivery failure must not
// fail the task mutation that triggered it. A full queue falls back to the
// failed-notification store right away.
func (p *Publisher) Publish(req *domain.NotificationRequest) {
	select {
	case p.queue <- req:
	default:
		p.logger.Warn("publish queue full, storing notification for retry",
			"recipient_id", req.RecipientID.String())
		p.storeFailed(context.Background(), req)
	}
}

// TryPublish writes the request to the broker synchronously. The retry
// sweep uses it to re-publish stored failures.
func (p *Publisher) TryPublish(ctx context.Context, req *domain.NotificationRequest) error {
	value, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return p.topic.Publish(ctx, req.RecipientID.String(), value)
}

// RetryFailed re-publishes every stored failed notification and deletes the
// rows that made it to the broker. Each row is attempted independently.
// Returns how many were successfully re-published.
func (p *Publisher) RetryFailed(ctx context.Context) (int, error) {
	failed, err := p.failedStore.List(ctx)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, fn := range failed {
		req, err := domain.NewNotificationRequest(fn.RecipientID, fn.Message)
		if err != nil {
			p.logger.Error("failed notification row is invalid, skipping",
				"failed_notification_id", fn.ID,
				"error", err)
			continue
		}
		if err := p.TryPublish(ctx, req); err != nil {
			p.logger.Warn("retry publish failed, keeping row",
				"failed_notification_id", fn.ID,
				"error", err)
			continue
		}
		if err := p.failedStore.Delete(ctx, fn.ID); err != nil {
			// The next sweep will re-publish it; duplicates are tolerated.
			p.logger.Warn("failed to delete retried notification row",
				"failed_notification_id", fn.ID,
				"error", err)
			continue
		}
		retried++
	}
	return retried, nil
}

func (p *Publisher) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(slog.Int("worker_id", id))
	log.Debug("starting publish worker")

	for {
		select {
		case <-p.ctx.Done():
			// Drain what is already queued before stopping.
			for {
				select {
				case req := <-p.queue:
					p.publish(req)
				default:
					log.Debug("stopping publish worker")
					return
				}
			}
		case req := <-p.queue:
			p.publish(req)
		}
	}
}

func (p *Publisher) publish(req *domain.NotificationRequest) {
	if err := p.TryPublish(context.Background(), req); err != nil {
		p.logger.Error("failed to publish notification, storing for retry",
			"recipient_id", req.RecipientID.String(),
			"error", err)
		p.storeFailed(context.Background(), req)
		return
	}
	p.logger.Debug("published notification",
		"recipient_id", req.RecipientID.String())
}

func (p *Publisher) storeFailed(ctx context.Context, req *domain.NotificationRequest) {
	failed := &domain.FailedNotification{
		RecipientID: req.RecipientID,
		Message:     req.Message,
	}
	if err := p.failedStore.Create(ctx, failed); err != nil {
		// Nothing left to fall back to; the notification is lost and the
		// loss is visible in logs only.
		p.logger.Error("failed to store notification fallback record",
			"recipient_id", req.RecipientID.String(),
			"error", err)
	}
}
