package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/archaeoscan/archaeoscan/internal/types"
)

// ReadingSink receives inbound sensor readings parsed off observer
// channels. The event router implements it.
type ReadingSink interface {
	HandleInbound(reading types.SensorReading, observerID string)
}

// wsChannel adapts a gorilla connection to the Channel interface. Gorilla
// allows one concurrent writer per connection, so sends serialize on a
// per-connection mutex.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Field rigs serve the dashboard from arbitrary origins.
		return true
	},
}

// Hub upgrades HTTP requests to observer connections and runs their
// receive loops.
type Hub struct {
	registry *Registry
	sink     ReadingSink
}

// NewHub wires the registry to the inbound reading sink.
func NewHub(registry *Registry, sink ReadingSink) *Hub {
	return &Hub{registry: registry, sink: sink}
}

// Registry exposes the shared observer set.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleConnection upgrades the request and serves the observer until its
// channel drops. A dropped connection is detected on the next read or the
// next failed send.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "not a websocket upgrade request", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	id := h.registry.Register(&wsChannel{conn: conn})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "observer_id", id, "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.handleMessage(id, data)
	}

	h.registry.Deregister(id)
	h.registry.Broadcast(statusMessage(fmt.Sprintf("Client disconnected. Connections: %d", h.registry.Count())))
}

// handleMessage routes a JSON sensor reading into the pipeline; anything
// else is echoed back to the sender.
func (h *Hub) handleMessage(id string, data []byte) {
	var reading types.SensorReading
	err := json.Unmarshal(data, &reading)
	isReading := err == nil && (reading.Piezo != 0 || reading.TDS != 0 || reading.Distance != 0)
	if isReading && h.sink != nil {
		h.sink.HandleInbound(reading, id)
		return
	}
	h.registry.SendTo(id, []byte("Echo: "+string(data)))
}

func statusMessage(text string) []byte {
	msg, _ := json.Marshal(map[string]string{"type": "status", "message": text})
	return msg
}
