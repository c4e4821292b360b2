// Package transport abstracts the peer link between the primary and
// secondary device. Three delivery qualities: direct message (low
// latency, needs live reachability, optional reply), queued transfer
// (store-and-forward, fire-and-forget), and context snapshot (last
// snapshot wins, always eventually delivered).
package transport

import (
	"errors"

	"github.com/claude/liveset/internal/wire"
)

// ErrUnreachable is reported when a direct send is attempted without
// live reachability.
var ErrUnreachable = errors.New("peer not reachable")

// Status is the observable pairing state of the link.
type Status struct {
	Reachable     bool
	PeerInstalled bool
	Paired        bool
}

// Problem returns a human-readable reason the link is unusable, or ""
// when sends are possible. Matches the unavailable-transport error
// taxonomy: surfaced as a string, operation skipped, no retry.
func (s Status) Problem() string {
	switch {
	case !s.Paired:
		return "no paired companion device"
	case !s.PeerInstalled:
		return "companion app is not installed"
	default:
		return ""
	}
}

// Handler receives inbound events on the transport's own delivery
// context. reply is non-nil only for direct sends carrying a reply
// callback; callers must re-dispatch onto their device loop before
// touching state.
type Handler func(ev wire.Event, reply func(wire.Event))

// Link is one side of the peer link.
type Link interface {
	// SendDirect delivers ev now or fails. onReply (optional) receives
	// the peer's reply; onErr (optional) receives the failure. A failed
	// direct send is never downgraded to a queued transfer.
	SendDirect(ev wire.Event, onReply func(wire.Event), onErr func(error))

	// SendQueued stores ev for delivery once reachability resumes.
	// Fire-and-forget: no reply, no failure callback, no local timeout.
	SendQueued(ev wire.Event)

	// PublishSnapshot replaces any previously undelivered snapshot.
	PublishSnapshot(ev wire.Event)

	// Receive registers the inbound handler.
	Receive(h Handler)

	// Status returns the current link status.
	Status() Status

	// OnStatusChange registers a callback invoked (on the transport's
	// delivery context) whenever the status changes.
	OnStatusChange(fn func(Status))
}

// Send applies the embedded caller policy: direct when reachable,
// queued otherwise. A failed direct send reports through onErr and is
// never retried through the queue, so one logical event can never
// arrive twice through two channels.
func Send(l Link, ev wire.Event, onErr func(error)) {
	if l.Status().Reachable {
		l.SendDirect(ev, nil, onErr)
		return
	}
	l.SendQueued(ev)
}
