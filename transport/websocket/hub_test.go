package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

// recordingHandler captures client actions
type recordingHandler struct {
	mu       sync.Mutex
	received []ClientMessage
	fail     error
	snapshot bool
}

func (h *recordingHandler) HandleClientMessage(ctx context.Context, sessionID string, msg ClientMessage) (*Message, error) {
	h.mu.Lock()
	h.received = append(h.received, msg)
	snapshot := h.snapshot
	h.mu.Unlock()
	if h.fail != nil {
		return nil, h.fail
	}
	if msg.Action == ActionSync && snapshot {
		return &Message{SessionID: sessionID, Event: "state", Data: map[string]string{"state": "idle"}}, nil
	}
	return nil, nil
}

func (h *recordingHandler) actions() []ClientMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ClientMessage(nil), h.received...)
}

func startHub(t *testing.T, handler MessageHandler) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	hub.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return message
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met within timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if cap(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected buffered broadcast channel of %d, got %d", broadcastBuffer, cap(hub.broadcast))
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	client1 := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, sendBuffer)}
	client2 := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, sendBuffer)}

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("s1") != 2 {
		t.Fatalf("Expected 2 clients, got %d", hub.ClientCount("s1"))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount("s1") != 1 || !hub.sessions["s1"][client2] {
		t.Error("Expected only client2 to remain")
	}
	if _, ok := <-client1.send; ok {
		t.Error("Expected unregistered client's send channel closed")
	}

	hub.unregisterClient(client2)
	if _, exists := hub.sessions["s1"]; exists {
		t.Error("Expected empty session to be cleaned up")
	}

	// Unregistering twice must not close the channel again
	hub.unregisterClient(client2)
}

func TestHubBroadcastOnlyToSession(t *testing.T) {
	hub := NewHub()

	inSession := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, sendBuffer)}
	other := &Client{hub: hub, sessionID: "s2", send: make(chan []byte, sendBuffer)}
	hub.registerClient(inSession)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SessionID: "s1", Event: "score", Data: map[string]int{"score": 3}})

	select {
	case data := <-inSession.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != "score" || message.SessionID != "s1" {
			t.Errorf("Unexpected message %+v", message)
		}
	default:
		t.Error("Expected message for s1 client")
	}

	if len(other.send) != 0 {
		t.Error("Expected no message for a client of another session")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s1", Event: "timer"})
	hub.broadcastMessage(&Message{SessionID: "s1", Event: "timer"})

	if hub.ClientCount("s1") != 0 {
		t.Error("Expected client with a full queue to be unregistered")
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // Run not started: nothing drains the queue

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Publish("s1", "timer", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if hub.Dropped() != 10 {
		t.Errorf("Expected 10 dropped events, got %d", hub.Dropped())
	}
}

func TestWebSocketSyncOnConnect(t *testing.T) {
	handler := &recordingHandler{snapshot: true}
	hub, server := startHub(t, handler)

	conn := dial(t, server, "ws-test")

	message := readMessage(t, conn)
	if message.Event != "state" || message.SessionID != "ws-test" {
		t.Errorf("Expected initial state message, got %+v", message)
	}
	if actions := handler.actions(); len(actions) == 0 || actions[0].Action != ActionSync {
		t.Errorf("Expected sync action on connect, got %+v", actions)
	}
	if hub.ClientCount("ws-test") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.ClientCount("ws-test"))
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketSnapshotOnlyToNewClient(t *testing.T) {
	handler := &recordingHandler{snapshot: true}
	hub, server := startHub(t, handler)

	first := dial(t, server, "join-test")
	readMessage(t, first)

	second := dial(t, server, "join-test")
	if message := readMessage(t, second); message.Event != "state" {
		t.Fatalf("Expected snapshot for the new client, got %+v", message)
	}
	waitFor(t, func() bool { return hub.ClientCount("join-test") == 2 })

	first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := first.ReadMessage(); err == nil {
		t.Errorf("Expected no snapshot for the existing client, got %s", data)
	}
}

func TestWebSocketPublishReachesClient(t *testing.T) {
	hub, server := startHub(t, nil)
	conn := dial(t, server, "msg-test")
	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	hub.Publish("msg-test", "cell", map[string]interface{}{"row": 1, "column": 2, "active": true})

	message := readMessage(t, conn)
	if message.Event != "cell" {
		t.Fatalf("Expected cell event, got %q", message.Event)
	}
	data, ok := message.Data.(map[string]interface{})
	if !ok || data["row"] != float64(1) || data["column"] != float64(2) || data["active"] != true {
		t.Errorf("Unexpected cell payload %#v", message.Data)
	}
}

func TestWebSocketClientActions(t *testing.T) {
	handler := &recordingHandler{}
	_, server := startHub(t, handler)
	conn := dial(t, server, "act-test")

	if err := conn.WriteJSON(ClientMessage{Action: ActionToggle}); err != nil {
		t.Fatalf("Failed to send toggle: %v", err)
	}
	if err := conn.WriteJSON(HitAt(2, 3)); err != nil {
		t.Fatalf("Failed to send hit: %v", err)
	}

	waitFor(t, func() bool { return len(handler.actions()) == 3 })

	actions := handler.actions()
	if actions[1].Action != ActionToggle {
		t.Errorf("Expected toggle, got %+v", actions[1])
	}
	if diff := cmp.Diff(HitAt(2, 3), actions[2]); diff != "" {
		t.Errorf("Hit mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketErrorsGoToSender(t *testing.T) {
	handler := &recordingHandler{fail: errors.New("session not found")}
	hub, server := startHub(t, handler)

	sender := dial(t, server, "err-test")
	// The failed sync on connect is reported first
	if message := readMessage(t, sender); message.Event != EventError {
		t.Fatalf("Expected error event, got %+v", message)
	}

	bystander := dial(t, server, "err-test")
	readMessage(t, bystander) // its own failed sync
	waitFor(t, func() bool { return hub.ClientCount("err-test") == 2 })

	if err := sender.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	message := readMessage(t, sender)
	if message.Event != EventError || !strings.Contains(message.Data.(string), "invalid message") {
		t.Errorf("Expected invalid message error, got %+v", message)
	}

	bystander.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := bystander.ReadMessage(); err == nil {
		t.Error("Expected the error to reach only the sender")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "bye")
	}))
	defer server.Close()

	conn := dial(t, server, "bye")
	waitFor(t, func() bool { return hub.ClientCount("bye") == 1 })

	cancel()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if hub.ClientCount("bye") != 0 {
		t.Error("Expected no clients after shutdown")
	}
}
