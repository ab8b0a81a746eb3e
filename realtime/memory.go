package realtime

import (
	"context"
	"sync"
)

// Memory is an in-process Broker. It backs local development without
// a NATS server and keeps tests hermetic. Delivery is synchronous:
// Publish returns after every subscriber callback ran.
type Memory struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string]map[int]func(Event)),
	}
}

func (b *Memory) Publish(_ context.Context, channel string, e Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[channel]))
	for _, fn := range b.subs[channel] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}

	return nil
}

func (b *Memory) Subscribe(channel string, fn func(Event)) (func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]func(Event))
	}

	id := b.nextID
	b.nextID++
	b.subs[channel][id] = fn

	return func() error {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs[channel], id)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		return nil
	}, nil
}
