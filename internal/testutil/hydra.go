package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// HydraServer is a fake head: a websocket event stream plus the
// /snapshot/utxo endpoint.
type HydraServer struct {
	*httptest.Server

	upgrader  websocket.Upgrader
	received  chan string
	connected chan struct{}

	mu           sync.Mutex
	conns        []*websocket.Conn
	utxo         map[string]any
	snapshotCode int
	snapshotHits int
}

// NewHydraServer starts a fake head that stops when the test ends.
func NewHydraServer(t testing.TB) *HydraServer {
	h := &HydraServer{
		received:     make(chan string, 64),
		connected:    make(chan struct{}, 16),
		utxo:         map[string]any{},
		snapshotCode: http.StatusOK,
	}
	h.Server = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.shutdown)
	return h
}

// Authority returns "127.0.0.1:port".
func (h *HydraServer) Authority() string {
	return strings.TrimPrefix(h.URL, "http://")
}

// WebsocketAddress returns the address string a node config would carry.
func (h *HydraServer) WebsocketAddress() string {
	return "ws://" + h.Authority()
}

// SetUTxO replaces the snapshot served at /snapshot/utxo.
func (h *HydraServer) SetUTxO(utxo map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.utxo = utxo
}

// FailSnapshot makes /snapshot/utxo answer with code; 0 restores 200.
func (h *HydraServer) FailSnapshot(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if code == 0 {
		code = http.StatusOK
	}
	h.snapshotCode = code
}

// SnapshotHits returns how many times the snapshot was fetched.
func (h *HydraServer) SnapshotHits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotHits
}

// WaitConnected blocks until a websocket client has connected.
func (h *HydraServer) WaitConnected(t testing.TB) {
	t.Helper()
	select {
	case <-h.connected:
	case <-time.After(5 * time.Second):
		t.Fatal("no websocket client connected")
	}
}

// Broadcast writes msg as a JSON text frame to every connected client.
func (h *HydraServer) Broadcast(t testing.TB, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		require.NoError(t, c.WriteMessage(websocket.TextMessage, data))
	}
}

// NextReceived returns the next frame a client sent to the head.
func (h *HydraServer) NextReceived(t testing.TB) string {
	t.Helper()
	select {
	case s := <-h.received:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
		return ""
	}
}

// DropClients closes every client connection without a close handshake.
func (h *HydraServer) DropClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.Close()
	}
	h.conns = nil
}

func (h *HydraServer) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/snapshot/utxo" {
		h.mu.Lock()
		h.snapshotHits++
		code, utxo := h.snapshotCode, h.utxo
		h.mu.Unlock()
		if code != http.StatusOK {
			http.Error(w, "snapshot unavailable", code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(utxo)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns = append(h.conns, conn)
	h.mu.Unlock()
	h.connected <- struct{}{}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case h.received <- string(data):
		default:
		}
	}
}

func (h *HydraServer) shutdown() {
	h.DropClients()
	h.Server.Close()
}
