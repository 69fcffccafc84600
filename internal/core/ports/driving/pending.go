package driving

import "context"

// PendingCounter publishes the number of unpushed local changes.
type PendingCounter interface {
	// Count returns the last observed count.
	Count() int
	// Subscribe delivers count changes until ctx is cancelled.
	Subscribe(ctx context.Context) <-chan int
	// Run refreshes the count periodically until ctx is cancelled.
	Run(ctx context.Context) error
}
