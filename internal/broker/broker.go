// Package broker provides the notification topic on top of Redis Streams.
//
// A topic is split into a fixed number of streams (partitions). Messages are
// routed by key, so all messages for one key land on the same partition and
// are consumed in publish order. Consumer groups with explicit XACK give
// at-least-once delivery: a message acknowledged only after handling
// completes, an unacknowledged message redelivered from the pending list.
package broker

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Message is a single entry read from a topic partition.
type Message struct {
	// ID is the stream entry id, used for acknowledgement.
	ID string
	// Key is the partition key the message was published under.
	Key string
	// Value is the opaque payload.
	Value []byte
	// Partition is the index of the stream the message was read from.
	Partition int
}

// Handler processes one message. Returning nil acknowledges the message;
// returning an error leaves it pending for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Topic is a partitioned, ordered append log backed by Redis Streams.
type Topic struct {
	cli        *redis.Client
	name       string
	partitions int
	logger     *slog.Logger
}

// NewTopic creates a topic handle. Streams are created lazily on first
// publish or group creation.
func NewTopic(cli *redis.Client, name string, partitions int, logger *slog.Logger) *Topic {
	if partitions < 1 {
		partitions = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Topic{
		cli:        cli,
		name:       name,
		partitions: partitions,
		logger:     logger.With(slog.String("component", "broker"), slog.String("topic", name)),
	}
}

// Partitions returns the number of partitions in the topic.
func (t *Topic) Partitions() int {
	return t.partitions
}

// Partition returns the partition index the given key routes to.
func (t *Topic) Partition(key string) int {
	// Modulo in uint32 space: int(checksum) can be negative on 32-bit
	// platforms, and a negative index names a stream no consumer reads.
	return int(crc32.ChecksumIEEE([]byte(key)) % uint32(t.partitions))
}

func (t *Topic) stream(partition int) string {
	return fmt.Sprintf("%s:%d", t.name, partition)
}

// Publish appends a message to the partition selected by key.
func (t *Topic) Publish(ctx context.Context, key string, value []byte) error {
	stream := t.stream(t.Partition(key))
	err := t.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"key":   key,
			"value": value,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

// Consume joins the consumer group and processes every partition of the
// topic, one goroutine per partition, one message at a time per partition.
// It blocks until ctx is cancelled. Handler errors leave the message in the
// pending list; the loop re-reads pending entries before fetching new ones,
// so a failed message is retried before its successors, preserving per-key
// order.
func (t *Topic) Consume(ctx context.Context, group, consumer string, handler Handler) error {
	for p := 0; p < t.partitions; p++ {
		if err := t.ensureGroup(ctx, t.stream(p), group); err != nil {
			return err
		}
	}

	errc := make(chan error, t.partitions)
	for p := 0; p < t.partitions; p++ {
		go func(partition int) {
			errc <- t.consumePartition(ctx, partition, group, consumer, handler)
		}(p)
	}

	var firstErr error
	for p := 0; p < t.partitions; p++ {
		if err := <-errc; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureGroup creates the consumer group if it does not exist yet.
// https://redis.io/commands/xgroup-create
func (t *Topic) ensureGroup(ctx context.Context, stream, group string) error {
	err := t.cli.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group on %s: %w", stream, err)
	}
	return nil
}

func (t *Topic) consumePartition(ctx context.Context, partition int, group, consumer string, handler Handler) error {
	stream := t.stream(partition)
	log := t.logger.With(slog.Int("partition", partition))

	// Start with the pending entries of this consumer: messages delivered
	// but not acknowledged before the last shutdown or failure.
	readPending := true

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ids := ">"
		if readPending {
			ids = "0"
		}

		// https://redis.io/commands/xreadgroup
		result, err := t.cli.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ids},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				readPending = false
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		handled := 0
		for _, streamRes := range result {
			for _, entry := range streamRes.Messages {
				handled++
				msg := Message{
					ID:        entry.ID,
					Key:       stringValue(entry.Values["key"]),
					Value:     []byte(stringValue(entry.Values["value"])),
					Partition: partition,
				}

				if err := handler(ctx, msg); err != nil {
					log.Error("handler failed, message left unacknowledged",
						"entry_id", msg.ID,
						"key", msg.Key,
						"error", err)
					// Re-read from the pending list so this message is
					// retried before any newer one. Back off so a
					// persistently failing message does not spin hot.
					readPending = true
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(time.Second):
					}
					continue
				}

				if err := t.cli.XAck(ctx, stream, group, entry.ID).Err(); err != nil {
					log.Error("failed to acknowledge message",
						"entry_id", msg.ID,
						"error", err)
				}
			}
		}

		// An empty pending read means we caught up; switch to new messages.
		if readPending && handled == 0 {
			readPending = false
		}
	}
}

func stringValue(v interface{}) string {
	switch data := v.(type) {
	case string:
		return data
	case []byte:
		return string(data)
	default:
		return ""
	}
}
