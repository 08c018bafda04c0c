package mocks

import (
	"sync"

	"github.com/taskhub/taskhub-api/internal/domain"
)

// Publisher captures published notification requests for assertions.
type Publisher struct {
	mu       sync.Mutex
	requests []*domain.NotificationRequest
}

// NewPublisher creates an empty capturing publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish records the request.
func (p *Publisher) Publish(req *domain.NotificationRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
}

// Requests returns the captured requests in publish order.
func (p *Publisher) Requests() []*domain.NotificationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.NotificationRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Messages returns just the captured message texts, in publish order.
func (p *Publisher) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	for i, req := range p.requests {
		out[i] = req.Message
	}
	return out
}

// Pusher captures real-time pushes for assertions.
type Pusher struct {
	mu     sync.Mutex
	pushes map[string][]any

	// PushErr makes every push fail, simulating a broken channel.
	PushErr error
}

// NewPusher creates an empty capturing pusher.
func NewPusher() *Pusher {
	return &Pusher{pushes: make(map[string][]any)}
}

// Push records the payload under the address.
func (p *Pusher) Push(address string, payload any) error {
	if p.PushErr != nil {
		return p.PushErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes[address] = append(p.pushes[address], payload)
	return nil
}

// Pushes returns the payloads pushed to the address.
func (p *Pusher) Pushes(address string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[address]
}
