package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"inkwell/internal/hub"
)

const (
	// Time allowed to write an event to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the peer is considered gone.
	pongWait = 60 * time.Second
	// Ping interval; must be shorter than pongWait.
	pingPeriod = 54 * time.Second
	// Outbound event buffer per connection. A peer that cannot drain this
	// fast enough is dropped rather than allowed to stall the workflow.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon is a local tool; browser origin checks do not apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient adapts a WebSocket connection to the hub's subscriber interface.
// Send enqueues without blocking; the write pump owns the connection.
type wsClient struct {
	conn *websocket.Conn
	send chan hub.Event
}

func (c *wsClient) Send(event hub.Event) error {
	select {
	case c.send <- event:
		return nil
	default:
		return errors.New("subscriber buffer full")
	}
}

// handleWebSocket upgrades the connection and attaches it to the project's
// event stream. The subscription lives until the peer disconnects or stops
// answering pings.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan hub.Event, sendBuffer)}
	s.hub.Subscribe(projectID, client)
	s.logger.Info("websocket client connected", "project_id", projectID)

	go s.writePump(projectID, client)
	go s.readPump(projectID, client)
}

// writePump serializes queued events to the peer and keeps it alive with
// periodic pings.
func (s *Server) writePump(projectID string, client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.hub.Unsubscribe(projectID, client)
		client.conn.Close()
	}()

	for {
		select {
		case event := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away. The channel is
// broadcast-only except for liveness: browser clients cannot send protocol
// pings, so a "ping" text frame is answered with a pong event.
func (s *Server) readPump(projectID string, client *wsClient) {
	defer func() {
		s.hub.Unsubscribe(projectID, client)
		client.conn.Close()
		s.logger.Info("websocket client disconnected", "project_id", projectID)
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage && strings.TrimSpace(string(data)) == "ping" {
			// Send drops the pong if the outbound buffer is full; the peer
			// will retry on its next liveness interval.
			client.Send(hub.Event{"type": "pong"})
		}
	}
}
