package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// View keys for the cached read views derived from the task store. Every
// workflow mutation clears the views of the affected manager, worker and the
// global listing in one call, replacing scattered per-cache eviction with an
// explicit dependent-view table.
const (
	viewAllTasks = "tasks:all"
)

func viewManagerTasks(managerID uuid.UUID) string {
	return fmt.Sprintf("tasks:manager:%s", managerID)
}

func viewWorkerTasks(workerID uuid.UUID) string {
	return fmt.Sprintf("tasks:worker:%s", workerID)
}

func viewSubmittedTasks(managerID uuid.UUID) string {
	return fmt.Sprintf("tasks:submitted:%s", managerID)
}

func viewExtensionRequests(managerID uuid.UUID) string {
	return fmt.Sprintf("tasks:extensions:%s", managerID)
}

// dependentViews lists every read view a mutation touching the given
// manager/worker pair can have gone stale.
func dependentViews(managerID, workerID uuid.UUID) []string {
	return []string{
		viewAllTasks,
		viewManagerTasks(managerID),
		viewWorkerTasks(workerID),
		viewSubmittedTasks(managerID),
		viewExtensionRequests(managerID),
	}
}

type cacheEntry struct {
	details   []*TaskDetails
	expiresAt time.Time
}

// ViewCache is a TTL cache over listing results. It only ever serves as a
// read accelerator: a miss falls through to the store, and mutations
// invalidate by view key.
type ViewCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewViewCache creates a cache whose entries expire after ttl.
func NewViewCache(ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ViewCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached view and whether it was present and fresh.
func (c *ViewCache) Get(key string) ([]*TaskDetails, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.details, true
}

// Set stores a view result.
func (c *ViewCache) Set(key string, details []*TaskDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		details:   details,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops the given view keys.
func (c *ViewCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}
