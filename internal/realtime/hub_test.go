package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archaeoscan/archaeoscan/internal/types"
)

type recordingSink struct {
	mu       sync.Mutex
	readings []types.SensorReading
}

func (s *recordingSink) HandleInbound(reading types.SensorReading, observerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, reading)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForCount(t *testing.T, check func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, want, check())
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleConnection))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, hub.Registry().Count())
}

func TestHubRegistersAndEchoes(t *testing.T) {
	hub := NewHub(NewRegistry(), &recordingSink{})
	conn := dialTestHub(t, hub)

	waitForCount(t, hub.Registry().Count, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Echo: ping", string(reply))
}

func TestHubRoutesReadingsToSink(t *testing.T) {
	sink := &recordingSink{}
	hub := NewHub(NewRegistry(), sink)
	conn := dialTestHub(t, hub)

	reading := types.SensorReading{Piezo: 3800, TDS: 750, Distance: 2.5}
	data, err := json.Marshal(reading)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	waitForCount(t, sink.count, 1)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, reading.Piezo, sink.readings[0].Piezo)
	assert.Equal(t, reading.Distance, sink.readings[0].Distance)
}

func TestHubDeregistersOnDisconnect(t *testing.T) {
	hub := NewHub(NewRegistry(), &recordingSink{})
	conn := dialTestHub(t, hub)

	waitForCount(t, hub.Registry().Count, 1)
	conn.Close()
	waitForCount(t, hub.Registry().Count, 0)
}

func TestHubBroadcastsDisconnectStatus(t *testing.T) {
	hub := NewHub(NewRegistry(), &recordingSink{})
	stayer := dialTestHub(t, hub)
	leaver := dialTestHub(t, hub)

	waitForCount(t, hub.Registry().Count, 2)
	leaver.Close()

	stayer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := stayer.ReadMessage()
	require.NoError(t, err)

	var status map[string]string
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, "status", status["type"])
	assert.Contains(t, status["message"], "Client disconnected")
}
