// Package bus fans inbound peer events out to whichever screens are
// currently showing the live session. One topic per event kind, so
// subscribers are statically known.
package bus

import (
	"sync"

	"github.com/claude/liveset/internal/wire"
)

// Bus is an in-process publish/subscribe channel. Publish runs
// subscribers synchronously on the caller's goroutine; coordinators
// publish from their device loop, so subscribers see serialized state.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[wire.Kind]map[int]func(wire.Event)
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[wire.Kind]map[int]func(wire.Event))}
}

// Subscribe registers fn for one event kind. The returned cancel
// removes the subscription.
func (b *Bus) Subscribe(kind wire.Kind, fn func(wire.Event)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]func(wire.Event))
	}
	id := b.next
	b.next++
	b.subs[kind][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// Publish delivers ev to every subscriber of its kind.
func (b *Bus) Publish(ev wire.Event) {
	b.mu.RLock()
	fns := make([]func(wire.Event), 0, len(b.subs[ev.Kind()]))
	for _, fn := range b.subs[ev.Kind()] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
