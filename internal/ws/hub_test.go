package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsHub "github.com/ramshi122/crazy-time-predictor/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

type status struct {
	Busy  bool  `json:"busy"`
	Ticks int64 `json:"ticks"`
}

func statusFunc() func() any {
	var n atomic.Int64
	return func() any { return status{Ticks: n.Add(1)} }
}

// startHub starts a test HTTP server with the hub as its handler.
func startHub(t *testing.T, interval time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(statusFunc(), interval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// readEvent skips messages until one with the given event arrives.
func readEvent(t *testing.T, conn *websocket.Conn, event string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		if m := readMessage(t, conn); m["event"] == event {
			return m
		}
	}
	t.Fatalf("no %q event received", event)
	return nil
}

func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count: got %d, want %d", hub.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesStatusWhenNoRound(t *testing.T) {
	wsURL, _, _ := startHub(t, time.Hour)

	m := readMessage(t, dial(t, wsURL))
	if m["event"] != wsHub.EventStatus {
		t.Errorf("event: got %v, want status", m["event"])
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["ticks"] != float64(1) {
		t.Errorf("ticks: got %v, want 1", data["ticks"])
	}
}

func TestHub_Connect_ReceivesLastRound(t *testing.T) {
	wsURL, hub, _ := startHub(t, time.Hour)
	hub.Publish(map[string]string{"id": "r1"})

	m := readMessage(t, dial(t, wsURL))
	if m["event"] != wsHub.EventRound {
		t.Fatalf("event: got %v, want round", m["event"])
	}
	if id := m["data"].(map[string]any)["id"]; id != "r1" {
		t.Errorf("id: got %v, want r1", id)
	}
}

func TestHub_PublishReachesAllClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, time.Hour)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i]) // initial status
	}
	waitCount(t, hub, 3)

	hub.Publish(map[string]string{"id": "r2"})
	for i, conn := range conns {
		m := readEvent(t, conn, wsHub.EventRound)
		if id := m["data"].(map[string]any)["id"]; id != "r2" {
			t.Errorf("client %d: id: got %v, want r2", i, id)
		}
	}
}

func TestHub_ReceivesStatusOnTick(t *testing.T) {
	wsURL, _, _ := startHub(t, testInterval)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	m := readEvent(t, conn, wsHub.EventStatus)
	if _, ok := m["data"].(map[string]any)["busy"]; !ok {
		t.Error("status tick: busy missing")
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	conn.Close()
	waitCount(t, hub, 0)
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	cancel()
	waitCount(t, hub, 0)
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(statusFunc(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
