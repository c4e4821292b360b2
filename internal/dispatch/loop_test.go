package dispatch

import (
	"sync"
	"testing"
	"time"
)

// TestDoWaitRunsSerially verifies that tasks dispatched from many
// goroutines never overlap on the loop.
func TestDoWaitRunsSerially(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var inside, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.DoWait(func() {
				mu.Lock()
				inside++
				if inside > max {
					max = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	if max != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", max)
	}
}

// TestCloseDrains verifies that tasks enqueued before Close still run.
func TestCloseDrains(t *testing.T) {
	l := NewLoop()
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 10; i++ {
		l.Do(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	l.Close()
	mu.Lock()
	defer mu.Unlock()
	if ran != 10 {
		t.Errorf("tasks run before shutdown = %d, want 10", ran)
	}
}

// TestDoAfterCloseDropped verifies that dispatch after Close is a no-op
// rather than a panic or a hang.
func TestDoAfterCloseDropped(t *testing.T) {
	l := NewLoop()
	l.Close()
	done := make(chan struct{})
	go func() {
		l.Do(func() { t.Error("task ran after Close") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do blocked after Close")
	}
}

// TestDoWaitAfterCloseReturns verifies that a blocking dispatch against
// a closed loop is dropped instead of waiting forever, so late read
// accessors cannot hang their caller.
func TestDoWaitAfterCloseReturns(t *testing.T) {
	l := NewLoop()
	l.Close()
	done := make(chan struct{})
	go func() {
		l.DoWait(func() { t.Error("task ran after Close") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DoWait blocked after Close")
	}
}

// TestEveryFiresAndCancels verifies that a repeating handle delivers
// ticks on the loop and stops after Cancel.
func TestEveryFiresAndCancels(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	ticks := make(chan struct{}, 16)
	r := l.Every(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}

	// Cancel from loop context, then confirm no further ticks land.
	l.DoWait(r.Cancel)
	for len(ticks) > 0 {
		<-ticks
	}
	select {
	case <-ticks:
		t.Error("tick delivered after Cancel")
	case <-time.After(30 * time.Millisecond):
	}
}

// TestCancelFromLoopIsSynchronous verifies the replace-not-stack
// guarantee: once Cancel runs on the loop, the old handle's callback
// never fires again even if a tick was already enqueued.
func TestCancelFromLoopIsSynchronous(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var mu sync.Mutex
	oldFired := false
	r := l.Every(time.Millisecond, func() {
		mu.Lock()
		oldFired = true
		mu.Unlock()
	})

	// Let it tick at least once, then cancel on the loop and reset the
	// flag in the same task. Any later callback would be a stale fire.
	time.Sleep(10 * time.Millisecond)
	l.DoWait(func() {
		r.Cancel()
		mu.Lock()
		oldFired = false
		mu.Unlock()
	})

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if oldFired {
		t.Error("cancelled handle fired after synchronous Cancel")
	}
}

// TestAfterFiresOnce verifies one-shot scheduling and cancellation.
func TestAfterFiresOnce(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	fired := make(chan struct{}, 2)
	l.After(5*time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("one-shot never fired")
	}
	select {
	case <-fired:
		t.Error("one-shot fired twice")
	case <-time.After(20 * time.Millisecond):
	}

	cancelled := l.After(10*time.Millisecond, func() { t.Error("cancelled one-shot fired") })
	cancelled.Cancel()
	time.Sleep(30 * time.Millisecond)
}

// TestCancelNilHandle verifies Cancel on a nil handle is safe, since
// callers cancel whatever handle they hold without checking.
func TestCancelNilHandle(t *testing.T) {
	var r *Repeating
	r.Cancel()
}
