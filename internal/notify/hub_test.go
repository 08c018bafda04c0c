package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taskhub/taskhub-api/internal/domain"
)

func TestHubPushToSubscribedClient(t *testing.T) {
	hub := NewHub(nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Subscribe(w, r, "worker@example.com")
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer func() { _ = conn.Close() }()

	notification := &domain.Notification{ID: 7, Message: "Task overdue: Quarterly report"}

	// Registration races the dial returning; retry until the hub sees the
	// connection.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		registered := len(hub.clients["worker@example.com"]) > 0
		hub.mu.RUnlock()
		if registered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the subscription to register")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.Push("worker@example.com", notification); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected a pushed message, got %v", err)
	}

	var received domain.Notification
	if err := json.Unmarshal(data, &received); err != nil {
		t.Fatalf("Expected JSON payload, got %v", err)
	}
	if received.ID != 7 || received.Message != "Task overdue: Quarterly report" {
		t.Errorf("Expected the pushed notification, got %+v", received)
	}
}

func TestHubPushWithoutSubscriberIsNoOp(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	if err := hub.Push("nobody@example.com", &domain.Notification{ID: 1}); err != nil {
		t.Errorf("Expected a no-op, got %v", err)
	}
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub(nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Subscribe(w, r, "worker@example.com")
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		gone := len(hub.clients["worker@example.com"]) == 0
		hub.mu.RUnlock()
		if gone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the connection to unregister")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
