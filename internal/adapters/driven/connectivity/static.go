package connectivity

import (
	"context"
	"sync"

	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure Static implements the interface.
var _ driven.ConnectivityObserver = (*Static)(nil)

// Static reports a state set by the caller.
type Static struct {
	mu        sync.RWMutex
	connected bool
	bus       *broadcaster
}

// NewStatic creates an observer with the given initial state.
func NewStatic(connected bool) *Static {
	return &Static{connected: connected, bus: newBroadcaster()}
}

// IsConnected returns the current state.
func (s *Static) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SetConnected changes the state and notifies subscribers on a transition.
func (s *Static) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()

	if changed {
		s.bus.publish(connected)
	}
}

// Subscribe delivers transitions until ctx is cancelled.
func (s *Static) Subscribe(ctx context.Context) <-chan bool {
	return s.bus.subscribe(ctx)
}
