package services

import (
	"context"
	"sync"
)

// broadcaster fans a value out to subscribers. Each subscriber channel
// holds at most one value; a slow reader sees only the latest.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[chan T]struct{})}
}

// subscribe registers a channel that is closed when ctx is done.
// initial is delivered first.
func (b *broadcaster[T]) subscribe(ctx context.Context, initial T) <-chan T {
	ch := make(chan T, 1)
	ch <- initial

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
