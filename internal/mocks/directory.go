package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// Directory is an in-memory resolver for directory identities. It satisfies
// both the single-lookup and batch-lookup interfaces the pipeline uses.
// Counting calls lets tests assert the batching invariant.
type Directory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	// Unavailable simulates a directory outage: every lookup yields the
	// unresolved result.
	Unavailable bool

	resolveCalls    int
	resolveAllCalls int
}

// NewDirectory creates a directory holding the given users.
func NewDirectory(users ...*domain.User) *Directory {
	d := &Directory{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Add registers a user.
func (d *Directory) Add(u *domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Resolve returns the user, or nil when unknown or unavailable.
func (d *Directory) Resolve(ctx context.Context, id uuid.UUID) *domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveCalls++
	if d.Unavailable {
		return nil
	}
	return d.users[id]
}

// ResolveAll returns the known subset of the requested ids. Unavailable
// yields an empty map.
func (d *Directory) ResolveAll(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]*domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveAllCalls++
	out := make(map[uuid.UUID]*domain.User)
	if d.Unavailable {
		return out
	}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out
}

// ResolveCalls reports how many single lookups were issued.
func (d *Directory) ResolveCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveCalls
}

// ResolveAllCalls reports how many batch lookups were issued.
func (d *Directory) ResolveAllCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveAllCalls
}
