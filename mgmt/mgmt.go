// Package mgmt implements a live WebSocket event feed for link
// reachability and quality transitions, the introspection surface spec §6
// asks for beyond the plain-Go control API in control/. Grounded on the
// teacher's face/web-socket-listener.go (http.Server + websocket.Upgrader,
// one goroutine per accepted connection) and face/web-socket-transport.go's
// sendFrame (write-and-drop-connection-on-error), generalized from a raw
// NDN frame sink to a small JSON event broadcaster.
package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/link"
)

// EventKind distinguishes the transitions the feed reports.
type EventKind string

const (
	EventLinkReachability EventKind = "link_reachability"
	EventLinkQuality      EventKind = "link_quality"
)

// Event is one JSON message pushed to every connected subscriber.
type Event struct {
	Kind        EventKind `json:"kind"`
	InterfaceID uint32    `json:"interface_id"`
	Label       link.Label `json:"label"`
	State       string    `json:"state,omitempty"`
	LossPct     uint32    `json:"loss_pct,omitempty"`
	DelayMs     uint32    `json:"delay_ms,omitempty"`
	JitterMs    uint32    `json:"jitter_ms,omitempty"`
}

// ListenerConfig mirrors the teacher's WebSocketListenerConfig shape.
type ListenerConfig struct {
	Bind string
	Port uint16
}

func (cfg ListenerConfig) addr() string {
	return net.JoinHostPort(cfg.Bind, strconv.FormatUint(uint64(cfg.Port), 10))
}

// Listener accepts WebSocket subscribers and broadcasts Events to all of
// them.
type Listener struct {
	server   http.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*websocket.Conn]struct{}
}

// NewListener creates a management event-feed listener bound to cfg.
func NewListener(cfg ListenerConfig) *Listener {
	return &Listener{
		server:      http.Server{Addr: cfg.addr()},
		upgrader:    websocket.Upgrader{WriteBufferPool: &sync.Pool{}, CheckOrigin: func(*http.Request) bool { return true }},
		subscribers: make(map[*websocket.Conn]struct{}),
	}
}

// Run starts the HTTP server, blocking until Close is called.
func (l *Listener) Run() {
	l.server.Handler = http.HandlerFunc(l.handler)
	err := l.server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		core.LogFatal("MgmtListener", "unable to start listener: ", err)
	}
}

// Close shuts down the HTTP server.
func (l *Listener) Close() {
	core.LogInfo("MgmtListener", "stopping listener")
	l.server.Shutdown(context.TODO())
}

func (l *Listener) handler(w http.ResponseWriter, r *http.Request) {
	c, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	core.LogInfo("MgmtListener", "accepting new subscriber from ", r.RemoteAddr)

	l.mu.Lock()
	l.subscribers[c] = struct{}{}
	l.mu.Unlock()

	go l.discardIncoming(c)
}

// discardIncoming drains and ignores client frames until the connection
// closes, mirroring the teacher's runReceive loop's role of detecting a
// dead peer.
func (l *Listener) discardIncoming(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			l.mu.Lock()
			delete(l.subscribers, c)
			l.mu.Unlock()
			c.Close()
			return
		}
	}
}

// Broadcast sends ev to every connected subscriber, dropping any that fail
// to write (spec §7: "not a fatal error").
func (l *Listener) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		core.LogWarn("MgmtListener", "failed to marshal event: ", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for c := range l.subscribers {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			core.LogWarn("MgmtListener", "unable to send to subscriber - DROP")
			delete(l.subscribers, c)
			c.Close()
		}
	}
}

// linkStateName renders a link.State for the event feed.
func linkStateName(s link.State) string {
	switch s {
	case link.StateReachable:
		return "reachable"
	case link.StateUnreachable:
		return "unreachable"
	case link.StatePending:
		return "pending"
	default:
		return "absent"
	}
}

// BroadcastReachability pushes a link_reachability event.
func (l *Listener) BroadcastReachability(interfaceID uint32, label link.Label, state link.State) {
	l.Broadcast(Event{Kind: EventLinkReachability, InterfaceID: interfaceID, Label: label, State: linkStateName(state)})
}

// BroadcastQuality pushes a link_quality event.
func (l *Listener) BroadcastQuality(interfaceID uint32, label link.Label, lossPct, delayMs, jitterMs uint32) {
	l.Broadcast(Event{Kind: EventLinkQuality, InterfaceID: interfaceID, Label: label, LossPct: lossPct, DelayMs: delayMs, JitterMs: jitterMs})
}
