package bus

import (
	"testing"

	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/wire"
)

// TestPublishFansOutByKind verifies subscribers only see their kind.
func TestPublishFansOutByKind(t *testing.T) {
	b := New()

	var toggles, snapshots int
	b.Subscribe(wire.KindSetToggled, func(wire.Event) { toggles++ })
	b.Subscribe(wire.KindSnapshot, func(wire.Event) { snapshots++ })

	b.Publish(wire.NewSetToggled(session.OriginWatch, "s1", "e1", "a", true))
	b.Publish(wire.NewSetToggled(session.OriginWatch, "s1", "e1", "a", false))
	b.Publish(wire.NewSessionFinished(session.OriginPhone, "s1"))

	if toggles != 2 {
		t.Errorf("toggle deliveries = %d, want 2", toggles)
	}
	if snapshots != 0 {
		t.Errorf("snapshot deliveries = %d, want 0", snapshots)
	}
}

// TestMultipleSubscribersSameKind verifies fan-out to every subscriber.
func TestMultipleSubscribersSameKind(t *testing.T) {
	b := New()

	var first, second int
	b.Subscribe(wire.KindSessionFinished, func(wire.Event) { first++ })
	b.Subscribe(wire.KindSessionFinished, func(wire.Event) { second++ })

	b.Publish(wire.NewSessionFinished(session.OriginPhone, "s1"))
	if first != 1 || second != 1 {
		t.Errorf("deliveries = %d,%d, want 1,1", first, second)
	}
}

// TestCancelStopsDelivery verifies a cancelled subscription receives
// nothing further and that cancelling twice is safe.
func TestCancelStopsDelivery(t *testing.T) {
	b := New()

	var n int
	cancel := b.Subscribe(wire.KindSessionFinished, func(wire.Event) { n++ })
	b.Publish(wire.NewSessionFinished(session.OriginPhone, "s1"))
	cancel()
	cancel()
	b.Publish(wire.NewSessionFinished(session.OriginPhone, "s2"))

	if n != 1 {
		t.Errorf("deliveries = %d, want 1", n)
	}
}
