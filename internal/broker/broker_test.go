package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

// collector accumulates handled messages behind a mutex and signals when the
// expected count is reached.
type collector struct {
	mu       sync.Mutex
	messages []Message
	want     int
	done     chan struct{}
	once     sync.Once
}

func newCollector(want int) *collector {
	return &collector{want: want, done: make(chan struct{})}
}

func (c *collector) handle(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if len(c.messages) >= c.want {
		c.once.Do(func() { close(c.done) })
	}
	return nil
}

func (c *collector) collected() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(10 * time.Second):
		t.Fatalf("Timed out waiting for messages, got %d of %d", len(c.collected()), c.want)
	}
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	cli := newTestClient(t)
	topic := NewTopic(cli, "test-topic", 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := map[string]string{
		"alice": "payload-a",
		"bob":   "payload-b",
		"carol": "payload-c",
	}
	for key, value := range payloads {
		if err := topic.Publish(ctx, key, []byte(value)); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	col := newCollector(len(payloads))
	go func() {
		_ = topic.Consume(ctx, "test-group", "consumer-1", col.handle)
	}()
	col.wait(t)
	cancel()

	got := map[string]string{}
	for _, msg := range col.collected() {
		got[msg.Key] = string(msg.Value)
		if want := topic.Partition(msg.Key); msg.Partition != want {
			t.Errorf("Expected message for %q on partition %d, got %d", msg.Key, want, msg.Partition)
		}
	}
	for key, value := range payloads {
		if got[key] != value {
			t.Errorf("Expected payload %q for key %q, got %q", value, key, got[key])
		}
	}
}

func TestPartitionRoutingIsStable(t *testing.T) {
	t.Parallel()

	cli := newTestClient(t)
	topic := NewTopic(cli, "routing", 4, nil)

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("recipient-%d", i)
		first := topic.Partition(key)
		if first < 0 || first >= topic.Partitions() {
			t.Fatalf("Partition %d for key %q out of range", first, key)
		}
		if second := topic.Partition(key); second != first {
			t.Errorf("Expected stable partition for %q, got %d then %d", key, first, second)
		}
	}

	// "recipient-2" checksums above math.MaxInt32; the partition must stay
	// non-negative even where int is 32 bits.
	if got := topic.Partition("recipient-2"); got != 0 {
		t.Errorf("Expected partition 0 for high-checksum key, got %d", got)
	}
}

func TestPerKeyOrderWithinPartition(t *testing.T) {
	cli := newTestClient(t)
	topic := NewTopic(cli, "ordered", 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const key = "same-recipient"
	for i := 0; i < 5; i++ {
		if err := topic.Publish(ctx, key, []byte(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	col := newCollector(5)
	go func() {
		_ = topic.Consume(ctx, "order-group", "consumer-1", col.handle)
	}()
	col.wait(t)
	cancel()

	for i, msg := range col.collected() {
		if want := fmt.Sprintf("msg-%d", i); string(msg.Value) != want {
			t.Errorf("Expected %q at position %d, got %q", want, i, msg.Value)
		}
	}
}

func TestFailedHandlerIsRedelivered(t *testing.T) {
	cli := newTestClient(t)
	topic := NewTopic(cli, "retry", 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := topic.Publish(ctx, "key", []byte("flaky")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	handler := func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}

	go func() {
		_ = topic.Consume(ctx, "retry-group", "consumer-1", handler)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for redelivery")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("Expected 2 delivery attempts, got %d", attempts)
	}
}
