// Package live bridges the external realtime voice channel into the
// session store over WebSocket.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mwhitfield/skytalk/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 64 << 10
)

// Frame is one message on the transcript channel. Clients send
// type "turn" frames carrying transcript fragments; the hub emits
// type "turn.committed" frames for every turn that reached the
// session store.
type Frame struct {
	Type string       `json:"type"`
	Turn session.Turn `json:"turn"`
}

// Hub accepts transcript connections, feeds incoming turns through
// the dedup filter, and fans committed turns out to every connected
// peer.
type Hub struct {
	sync     *session.TranscriptSync
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*connection]struct{}
}

type connection struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once
}

func NewHub(ts *session.TranscriptSync) *Hub {
	return &Hub{
		sync: ts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*connection]struct{}),
	}
}

// HandleTranscript upgrades the request and runs the connection until
// the peer goes away.
func (h *Hub) HandleTranscript(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		conn: ws,
		send: make(chan []byte, 256),
		hub:  h,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// broadcast sends a committed-turn frame to every connected peer.
// Slow peers are skipped rather than blocking the channel.
func (h *Hub) broadcast(turn session.Turn) {
	frame := Frame{Type: "turn.committed", Turn: turn}
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("Failed to encode broadcast frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- data:
		default:
			slog.Warn("Dropping frame for slow subscriber", "turnID", turn.ID)
		}
	}
}

func (h *Hub) handleFrame(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Warn("Ignoring malformed transcript frame", "error", err)
		return
	}
	if frame.Type != "turn" || frame.Turn.ID == "" {
		return
	}

	forwarded, err := h.sync.Push(frame.Turn)
	if err != nil {
		slog.Error("Failed to sync transcript turn",
			"error", err,
			"turnID", frame.Turn.ID)
		return
	}
	if forwarded {
		h.broadcast(frame.Turn)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			break
		}
		c.hub.handleFrame(data)
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
