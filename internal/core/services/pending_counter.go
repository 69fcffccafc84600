package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// DefaultPendingCountInterval is how often the pending change count is polled.
const DefaultPendingCountInterval = 2 * time.Second

// Ensure PendingCounter implements the interface.
var _ driving.PendingCounter = (*PendingCounter)(nil)

// PendingCounter polls the pending change queue and publishes the count
// to subscribers whenever it changes.
type PendingCounter struct {
	pending  driven.PendingChangeStore
	interval time.Duration
	bus      *broadcaster[int]

	mu    sync.RWMutex
	count int
}

// NewPendingCounter creates a counter polling at interval.
func NewPendingCounter(pending driven.PendingChangeStore, interval time.Duration) *PendingCounter {
	if interval <= 0 {
		interval = DefaultPendingCountInterval
	}
	return &PendingCounter{
		pending:  pending,
		interval: interval,
		bus:      newBroadcaster[int](),
	}
}

// Count returns the last polled count.
func (c *PendingCounter) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// Subscribe delivers the current count and every change until ctx is done.
func (c *PendingCounter) Subscribe(ctx context.Context) <-chan int {
	return c.bus.subscribe(ctx, c.Count())
}

// Refresh polls the store once.
func (c *PendingCounter) Refresh(ctx context.Context) (int, error) {
	n, err := c.pending.Count(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	changed := n != c.count
	c.count = n
	c.mu.Unlock()
	if changed {
		c.bus.publish(n)
	}
	return n, nil
}

// Run polls until ctx is cancelled.
func (c *PendingCounter) Run(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		logger.Warn("Failed to count pending changes: %v", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil {
				logger.Warn("Failed to count pending changes: %v", err)
			}
		}
	}
}
