package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Bus is an in-process publish/subscribe channel. Slow subscribers lose
// events rather than block publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe returns a channel of events and a function that closes it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Relay drains a bus subscription into sink on its own goroutine until ctx
// is done. Slow sinks such as a Kafka writer sit behind a relay so publishers
// never wait on them.
func Relay(ctx context.Context, b *Bus, sink Notifier) {
	ch, cancel := b.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				if err := sink.Publish(ctx, e); err != nil {
					zap.L().Warn("event relay failed", zap.String("type", e.Type), zap.Error(err))
				}
			}
		}
	}()
}
