package rdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationMethod(t *testing.T) {
	tests := []struct {
		name   string
		frame  string
		method string
		ok     bool
	}{
		{"notification", `{"jsonrpc":"2.0","method":"client.events.onApplicationLaunched","params":{"client":"Cobalt"}}`, "client.events.onApplicationLaunched", true},
		{"register reply", `{"jsonrpc":"2.0","id":3,"result":0}`, "", false},
		{"foreign notification", `{"jsonrpc":"2.0","method":"other.onChange"}`, "", false},
		{"garbage", `not json`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, ok := notificationMethod([]byte(tt.frame))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.method, method)
		})
	}
}

func TestEventListener(t *testing.T) {
	registered := make(chan Request, len(LifecycleEvents))
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for range LifecycleEvents {
			var req Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			registered <- req
			_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 0})
		}
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"jsonrpc":"2.0","method":"client.events.onApplicationSuspended","params":{"client":"netflix"}}`))

		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	listener := NewEventListener(strings.TrimPrefix(server.URL, "http://"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	select {
	case <-listener.Notifications():
	case <-time.After(5 * time.Second):
		t.Fatal("expected a wake-up after the notification")
	}

	require.Len(t, registered, len(LifecycleEvents))
	req := <-registered
	assert.Equal(t, string(RegisterEvent), req.Method)
}
