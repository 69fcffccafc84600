package driven

import "context"

// ConnectivityObserver reports OS-level network availability.
type ConnectivityObserver interface {
	// IsConnected returns the current state.
	IsConnected() bool

	// Subscribe delivers connectivity transitions until ctx is cancelled.
	Subscribe(ctx context.Context) <-chan bool
}
