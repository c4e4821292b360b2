package transport

import (
	"sync"

	"github.com/claude/liveset/internal/wire"
)

// Loopback is an in-memory Link for tests and the simulator. Two
// endpoints created by NewPair deliver to each other on fresh
// goroutines, modelling the transport's own delivery context.
type Loopback struct {
	mu        sync.Mutex
	peer      *Loopback
	status    Status
	epoch     int
	queue     []queuedItem
	snapshot  wire.Event
	handler   Handler
	statusCbs []func(Status)
	deliver   func(fn func()) // test hook; defaults to go fn()
}

type queuedItem struct {
	epoch int
	ev    wire.Event
}

// NewPair creates two cross-linked loopback endpoints, initially
// paired and installed but not reachable.
func NewPair() (*Loopback, *Loopback) {
	a := &Loopback{status: Status{Paired: true, PeerInstalled: true}}
	b := &Loopback{status: Status{Paired: true, PeerInstalled: true}}
	a.peer, b.peer = b, a
	a.deliver = func(fn func()) { go fn() }
	b.deliver = a.deliver
	return a, b
}

// NewSyncPair creates a loopback pair whose deliveries run inline on
// the sender's goroutine, for deterministic tests.
func NewSyncPair() (*Loopback, *Loopback) {
	a, b := NewPair()
	inline := func(fn func()) { fn() }
	a.deliver, b.deliver = inline, inline
	return a, b
}

// Activate starts a fresh pairing epoch. Transfers queued under a
// previous epoch are cancelled so a pairing reset cannot replay stale
// events into a fresh session.
func (l *Loopback) Activate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	kept := l.queue[:0]
	for _, it := range l.queue {
		if it.epoch == l.epoch {
			kept = append(kept, it)
		}
	}
	l.queue = kept
}

// SetReachable flips reachability. Becoming reachable flushes queued
// transfers (current epoch only) and any pending snapshot.
func (l *Loopback) SetReachable(reachable bool) {
	l.mu.Lock()
	if l.status.Reachable == reachable {
		l.mu.Unlock()
		return
	}
	l.status.Reachable = reachable
	status := l.status
	cbs := append([]func(Status){}, l.statusCbs...)
	var flush []wire.Event
	if reachable {
		for _, it := range l.queue {
			if it.epoch == l.epoch {
				flush = append(flush, it.ev)
			}
		}
		l.queue = nil
		if l.snapshot != nil {
			flush = append(flush, l.snapshot)
			l.snapshot = nil
		}
	}
	l.mu.Unlock()

	for _, cb := range cbs {
		cb(status)
	}
	for _, ev := range flush {
		l.deliverToPeer(ev, nil)
	}
}

// SetPeerInstalled flips the peer-app-installed flag.
func (l *Loopback) SetPeerInstalled(installed bool) {
	l.mu.Lock()
	l.status.PeerInstalled = installed
	status := l.status
	cbs := append([]func(Status){}, l.statusCbs...)
	l.mu.Unlock()
	for _, cb := range cbs {
		cb(status)
	}
}

// SendDirect implements Link.
func (l *Loopback) SendDirect(ev wire.Event, onReply func(wire.Event), onErr func(error)) {
	l.mu.Lock()
	reachable := l.status.Reachable
	l.mu.Unlock()
	if !reachable {
		if onErr != nil {
			l.deliver(func() { onErr(ErrUnreachable) })
		}
		return
	}
	l.deliverToPeer(ev, onReply)
}

// SendQueued implements Link.
func (l *Loopback) SendQueued(ev wire.Event) {
	l.mu.Lock()
	if l.status.Reachable {
		l.mu.Unlock()
		l.deliverToPeer(ev, nil)
		return
	}
	l.queue = append(l.queue, queuedItem{epoch: l.epoch, ev: ev})
	l.mu.Unlock()
}

// PublishSnapshot implements Link. An undelivered snapshot is replaced
// in place: last snapshot wins at the transport layer.
func (l *Loopback) PublishSnapshot(ev wire.Event) {
	l.mu.Lock()
	if l.status.Reachable {
		l.mu.Unlock()
		l.deliverToPeer(ev, nil)
		return
	}
	l.snapshot = ev
	l.mu.Unlock()
}

// Receive implements Link.
func (l *Loopback) Receive(h Handler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// Status implements Link.
func (l *Loopback) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// OnStatusChange implements Link.
func (l *Loopback) OnStatusChange(fn func(Status)) {
	l.mu.Lock()
	l.statusCbs = append(l.statusCbs, fn)
	l.mu.Unlock()
}

func (l *Loopback) deliverToPeer(ev wire.Event, onReply func(wire.Event)) {
	l.peer.mu.Lock()
	h := l.peer.handler
	l.peer.mu.Unlock()
	if h == nil {
		return
	}
	var reply func(wire.Event)
	if onReply != nil {
		reply = func(resp wire.Event) { l.deliver(func() { onReply(resp) }) }
	}
	l.deliver(func() { h(ev, reply) })
}

var _ Link = (*Loopback)(nil)
