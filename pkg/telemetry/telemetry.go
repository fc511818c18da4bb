// Package telemetry broadcasts servo session status to any number of
// WebSocket observers using a register/unregister/broadcast Hub, carrying
// a status snapshot instead of a vendor message envelope. It is an
// optional status push: nothing in the control pipeline reads it back.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armteleop/cobotservo/internal/logging"
	"github.com/armteleop/cobotservo/pkg/pose"
)

// Status is one snapshot of the servo session's observable state.
type Status struct {
	SessionID    string    `json:"session_id"`
	Time         time.Time `json:"time"`
	PlannerState string    `json:"planner_state"`
	RobotPose    pose.Pose `json:"robot_pose"`
	TickCount    uint64    `json:"tick_count"`
	ErrorCount   uint64    `json:"error_count"`
}

type client struct {
	conn *websocket.Conn
	send chan Status
}

// Hub maintains the set of connected telemetry observers and fans out
// every Publish call to all of them, dropping slow clients rather than
// blocking the publisher.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewHub returns an empty Hub, ready to accept WebSocket connections on
// its ServeHTTP handler and Publish calls from the servo session.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// ServeHTTP upgrades the connection and registers it as a telemetry
// observer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Sugar().Warnw("telemetry: upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan Status, 16)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
}

func (h *Hub) writePump(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.conn.Close()
	}()

	for status := range c.send {
		b, err := json.Marshal(status)
		if err != nil {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// Publish fans Status out to every connected observer. A client whose
// send buffer is full is dropped rather than allowed to stall the
// session's status reporting.
func (h *Hub) Publish(status Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- status:
		default:
			logging.Sugar().Warn("telemetry: dropping slow client")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Close disconnects every connected observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
