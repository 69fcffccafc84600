package connectivity

import (
	"context"
	"sync"
)

// broadcaster fans connectivity transitions out to subscribers.
// Slow subscribers only ever see the latest state.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan bool]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan bool]struct{})}
}

// subscribe registers a channel that is closed when ctx is done.
func (b *broadcaster) subscribe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
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

func (b *broadcaster) publish(connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- connected:
		default:
			// Replace the stale value.
			select {
			case <-ch:
			default:
			}
			ch <- connected
		}
	}
}
