package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tair/taghub/internal/inventory/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversEventsToDashboards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	event := domain.Event{ID: "evt-1", Type: domain.EventTagAssigned, TagIDs: []string{"TAG-001"}}
	if err := hub.Handle(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type string       `json:"type"`
		Data domain.Event `json:"data"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MessageEvent || msg.Data.ID != "evt-1" || msg.Data.Type != domain.EventTagAssigned {
		t.Errorf("unexpected frame: %s", frame)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	delivered, err := hub.Broadcast(MessageAlerts, map[string]int{"alerts": 0})
	if err != nil || delivered != 0 {
		t.Errorf("expected no deliveries, got %d (%v)", delivered, err)
	}

	if _, err := hub.Broadcast(MessageAlerts, func() {}); err == nil {
		t.Error("expected unencodable payload to fail")
	}
}
