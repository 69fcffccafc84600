package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// HealthMonitor tracks server reachability.
type HealthMonitor interface {
	// CheckServerHealth probes the server once and records the result.
	CheckServerHealth(ctx context.Context) domain.ServerStatus

	// Status returns the last recorded status.
	Status() domain.ServerStatus

	// IsReachable returns true when connected and the server is online.
	IsReachable() bool

	// NextDelay returns the current polling delay.
	NextDelay() time.Duration

	// SetForeground switches between foreground and background cadence.
	SetForeground(foreground bool)

	// Subscribe delivers status changes until ctx is cancelled.
	Subscribe(ctx context.Context) <-chan domain.ServerStatus

	// Start runs the polling loop until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the polling loop.
	Stop() error
}
