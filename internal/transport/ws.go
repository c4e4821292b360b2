package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/claude/liveset/internal/wire"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 10 * time.Second
	wsPingPeriod = 3 * time.Second
)

// wsLink is the shared core of both websocket endpoints. Reachability
// tracks whether a live connection exists and answers control pings.
//
// Reply correlation is FIFO: an inbound pong event resolves the oldest
// outstanding reply callback. Only the liveness probe uses replies, so
// FIFO matching is sufficient.
type wsLink struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	status    Status
	epoch     int
	queue     []queuedItem
	snapshot  wire.Event
	handler   Handler
	statusCbs []func(Status)
	pending   []*pendingReply
	log       *slog.Logger
}

// pendingReply tracks one outstanding direct send awaiting its pong.
// The pointer identity lets a failed write withdraw its own entry even
// if other sends were registered in between.
type pendingReply struct {
	fn func(wire.Event)
}

func newWSLink(log *slog.Logger) *wsLink {
	return &wsLink{
		status: Status{Paired: true, PeerInstalled: true},
		log:    log,
	}
}

// Activate starts a fresh pairing epoch, cancelling transfers queued
// under the previous one.
func (l *wsLink) Activate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	l.queue = nil
}

// SendDirect implements Link.
func (l *wsLink) SendDirect(ev wire.Event, onReply func(wire.Event), onErr func(error)) {
	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.mu.Unlock()
		if onErr != nil {
			go onErr(ErrUnreachable)
		}
		return
	}
	var pr *pendingReply
	if onReply != nil {
		pr = &pendingReply{fn: onReply}
		l.pending = append(l.pending, pr)
	}
	l.mu.Unlock()

	if err := l.write(conn, ev); err != nil {
		if pr != nil {
			l.mu.Lock()
			for i, p := range l.pending {
				if p == pr {
					l.pending = append(l.pending[:i], l.pending[i+1:]...)
					break
				}
			}
			l.mu.Unlock()
		}
		if onErr != nil {
			go onErr(err)
		}
	}
}

// SendQueued implements Link.
func (l *wsLink) SendQueued(ev wire.Event) {
	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.queue = append(l.queue, queuedItem{epoch: l.epoch, ev: ev})
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	if err := l.write(conn, ev); err != nil {
		l.log.Warn("queued transfer failed", "kind", ev.Kind(), "error", err)
	}
}

// PublishSnapshot implements Link.
func (l *wsLink) PublishSnapshot(ev wire.Event) {
	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.snapshot = ev
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	if err := l.write(conn, ev); err != nil {
		l.log.Warn("snapshot publish failed", "error", err)
	}
}

// Receive implements Link.
func (l *wsLink) Receive(h Handler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

// Status implements Link.
func (l *wsLink) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// OnStatusChange implements Link.
func (l *wsLink) OnStatusChange(fn func(Status)) {
	l.mu.Lock()
	l.statusCbs = append(l.statusCbs, fn)
	l.mu.Unlock()
}

func (l *wsLink) write(conn *websocket.Conn, ev wire.Event) error {
	data, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// attach installs a live connection, flips reachability, and flushes
// queued transfers and any pending snapshot. It then runs the read
// pump until the connection dies.
func (l *wsLink) attach(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.conn = conn
	l.status.Reachable = true
	status := l.status
	cbs := append([]func(Status){}, l.statusCbs...)
	flush := make([]wire.Event, 0, len(l.queue)+1)
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
	l.mu.Unlock()

	for _, cb := range cbs {
		cb(status)
	}
	for _, ev := range flush {
		if err := l.write(conn, ev); err != nil {
			l.log.Warn("flush on reconnect failed", "kind", ev.Kind(), "error", err)
		}
	}

	go l.pingPump(conn)
	l.readPump(conn)
}

func (l *wsLink) detach(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn != conn {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	l.status.Reachable = false
	l.pending = nil
	status := l.status
	cbs := append([]func(Status){}, l.statusCbs...)
	l.mu.Unlock()
	conn.Close()
	for _, cb := range cbs {
		cb(status)
	}
}

func (l *wsLink) pingPump(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		if l.conn != conn {
			l.mu.Unlock()
			return
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		l.mu.Unlock()
		if err != nil {
			l.detach(conn)
			return
		}
	}
}

func (l *wsLink) readPump(conn *websocket.Conn) {
	defer l.detach(conn)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		ev, err := wire.Decode(data)
		if err != nil {
			l.log.Warn("dropping malformed peer message", "error", err)
			continue
		}
		l.dispatch(ev)
	}
}

func (l *wsLink) dispatch(ev wire.Event) {
	// An app-level pong resolves the oldest outstanding reply.
	if ev.Kind() == wire.KindPong {
		l.mu.Lock()
		if len(l.pending) > 0 {
			pr := l.pending[0]
			l.pending = l.pending[1:]
			l.mu.Unlock()
			pr.fn(ev)
			return
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h == nil {
		return
	}
	reply := func(resp wire.Event) {
		l.mu.Lock()
		conn := l.conn
		l.mu.Unlock()
		if conn == nil {
			return
		}
		if err := l.write(conn, resp); err != nil {
			l.log.Warn("reply send failed", "error", err)
		}
	}
	h(ev, reply)
}

// Hub is the primary-side websocket endpoint: it accepts the
// secondary's connection on an HTTP route. A new connection replaces
// the previous one.
type Hub struct {
	*wsLink
	upgrader websocket.Upgrader
}

// NewHub creates the hosting endpoint.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		wsLink: newWSLink(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Peer link is local/tailnet only; no browser origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.log.Info("peer connected", "remote", r.RemoteAddr)
	go h.attach(conn)
}

// Client is the secondary-side websocket endpoint: it dials the
// primary and reconnects with backoff until the context ends.
type Client struct {
	*wsLink
	url string
}

// NewClient creates the dialing endpoint.
func NewClient(url string, log *slog.Logger) *Client {
	return &Client{wsLink: newWSLink(log), url: url}
}

// Run dials and re-dials the primary until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	backoff := time.Second
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.log.Info("connected to primary", "url", c.url)
			backoff = time.Second
			c.attach(conn)
			c.log.Info("disconnected from primary")
		} else {
			c.log.Warn("dial failed", "url", c.url, "error", err)
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

var (
	_ Link = (*Hub)(nil)
	_ Link = (*Client)(nil)
)
