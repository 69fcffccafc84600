package services

import "sync"

// ChangeGate serialises every reader and writer of the pending change
// queue: the sync push phase, each pull page and local mutations made
// through DocumentService. A page never overwrites a cached record whose
// change is still queued.
type ChangeGate struct {
	mu sync.Mutex
}

// NewChangeGate creates an open gate.
func NewChangeGate() *ChangeGate {
	return &ChangeGate{}
}

// Do runs fn while holding the gate.
func (g *ChangeGate) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
