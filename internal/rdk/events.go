package rdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dabbridge/internal/logger"
)

const eventClientID = "client.events"

// EventListener holds a WebSocket connection to the device and turns RDKShell
// lifecycle notifications into wake-ups on a channel. Notifications carry no
// state; consumers re-query the device after a wake-up.
type EventListener struct {
	address string
	events  []string
	notify  chan struct{}
	retry   time.Duration
	nextID  atomic.Int64
	logger  zerolog.Logger
}

// NewEventListener creates a listener for the device at address
func NewEventListener(address string) *EventListener {
	return &EventListener{
		address: address,
		events:  LifecycleEvents,
		notify:  make(chan struct{}, 1),
		retry:   5 * time.Second,
		logger:  logger.Component("rdk_events"),
	}
}

// Notifications returns the wake-up channel. At most one wake-up is buffered.
func (l *EventListener) Notifications() <-chan struct{} {
	return l.notify
}

// URL returns the WebSocket endpoint URL
func (l *EventListener) URL() string {
	return fmt.Sprintf("ws://%s%s", l.address, Endpoint)
}

// Run keeps the listener connected until ctx is cancelled
func (l *EventListener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().
			Err(err).
			Dur("retry", l.retry).
			Msg("Event connection lost, falling back to polling")

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *EventListener) listen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", l.URL(), err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for _, event := range l.events {
		request := Request{
			JSONRPC: JSONRPCVersion,
			ID:      l.nextID.Add(1),
			Method:  string(RegisterEvent),
			Params:  EventRegistration{Event: event, ID: eventClientID},
		}
		if err := conn.WriteJSON(request); err != nil {
			return fmt.Errorf("failed to register %s: %w", event, err)
		}
	}

	l.logger.Info().
		Str("url", l.URL()).
		Int("events", len(l.events)).
		Msg("Listening for lifecycle events")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if method, ok := notificationMethod(data); ok {
			l.logger.Debug().Str("event", method).Msg("Lifecycle event")
			l.signal()
		}
	}
}

func (l *EventListener) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// notificationMethod returns the method of a notification frame. Replies to
// the register calls carry an id and are ignored.
func notificationMethod(data []byte) (string, bool) {
	var frame struct {
		ID     *int64 `json:"id"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", false
	}
	if frame.ID != nil || !strings.HasPrefix(frame.Method, eventClientID+".") {
		return "", false
	}
	return frame.Method, true
}
