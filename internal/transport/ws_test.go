package transport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/wire"
)

// deadServerConn returns an upgraded server-side websocket connection
// whose socket is already closed, so every write on it fails.
func deadServerConn(t *testing.T) *websocket.Conn {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	conn := <-conns
	conn.UnderlyingConn().Close()
	return conn
}

// TestDirectFailureKeepsOlderReply verifies a failed direct send
// withdraws only its own reply callback: an earlier in-flight send
// still resolves on the next pong.
func TestDirectFailureKeepsOlderReply(t *testing.T) {
	l := newWSLink(slog.New(slog.NewTextHandler(io.Discard, nil)))
	conn := deadServerConn(t)
	l.mu.Lock()
	l.conn = conn
	l.status.Reachable = true
	// An earlier send already awaiting its pong.
	var older wire.Event
	l.pending = append(l.pending, &pendingReply{fn: func(ev wire.Event) { older = ev }})
	l.mu.Unlock()

	errCh := make(chan error, 1)
	l.SendDirect(wire.NewPing(session.OriginPhone), func(wire.Event) {
		t.Error("failed send resolved a reply")
	}, func(err error) { errCh <- err })

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("write on a dead socket reported no error")
		}
	case <-time.After(time.Second):
		t.Fatal("send error never reported")
	}

	l.dispatch(wire.NewPong(session.OriginWatch, time.Now()))
	if older == nil || older.Kind() != wire.KindPong {
		t.Fatalf("older reply = %v, want pong", older)
	}
	l.mu.Lock()
	remaining := len(l.pending)
	l.mu.Unlock()
	if remaining != 0 {
		t.Errorf("pending callbacks = %d, want 0", remaining)
	}
}
