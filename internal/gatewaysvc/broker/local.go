package broker

import (
	"context"
	"sync"
)

// LocalBus delivers changes inside one process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Change)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func(Change))}
}

func (b *LocalBus) Publish(ctx context.Context, c Change) error {
	b.mu.RLock()
	// snapshot the callbacks so none run under the lock
	var fns []func(Change)
	for _, fn := range b.subs[topic(".", c.GameID, c.Kind)] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
	return nil
}

func (b *LocalBus) Subscribe(gameID string, kind Kind, fn func(Change)) (func(), error) {
	t := topic(".", gameID, kind)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]func(Change))
	}
	b.subs[t][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[t], id)
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
		})
	}, nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]func(Change))
	return nil
}

// Subscribers counts the live registrations across all topics.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, fns := range b.subs {
		n += len(fns)
	}
	return n
}
