// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smallnest/chanx"

	"dabbridge/internal/logger"
	"dabbridge/internal/metrics"
)

// ReconnectPolicy bounds connection attempts. Exhausting it is fatal to the caller.
type ReconnectPolicy struct {
	Initial     time.Duration
	MaxInterval time.Duration
	MaxAttempts uint
}

// Config describes the broker connection
type Config struct {
	Host      string
	Port      int
	ClientID  string
	KeepAlive uint16
	QoS       byte
	Reconnect ReconnectPolicy

	// PublishTimeout bounds a single network publish
	PublishTimeout time.Duration

	// Informational reports publish-only topics whose deliveries are dropped
	Informational func(topic string) bool
}

// DefaultConfig returns the connection defaults
func DefaultConfig() Config {
	return Config{
		Host:      "localhost",
		Port:      1883,
		ClientID:  "dab-bridge-" + uuid.NewString()[:8],
		KeepAlive: 30,
		QoS:       1,
		Reconnect: ReconnectPolicy{
			Initial:     time.Second,
			MaxInterval: 30 * time.Second,
			MaxAttempts: 10,
		},
		PublishTimeout: 10 * time.Second,
	}
}

// initial capacity of the inbound and outbound channels before they spill
// into chanx's ring buffer
const queueCapacity = 64

// Transport connects the bridge to an MQTT v5 broker. Receiving happens on the
// caller's goroutine; publishing is handed to a worker through an unbounded
// queue so a slow send never blocks request handling.
type Transport struct {
	cfg Config

	mu      sync.RWMutex
	client  *paho.Client
	filters []string

	connected atomic.Bool
	inbound   *chanx.UnboundedChan[Message]
	outbound  *chanx.UnboundedChan[Message]
	lost      chan error

	// queues live until Close
	queuesCtx    context.Context
	queuesCancel context.CancelFunc

	workerOnce   sync.Once
	workerCancel context.CancelFunc
	workerDone   chan struct{}

	logger zerolog.Logger
}

// New creates an unconnected transport
func New(cfg Config) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		cfg:          cfg,
		inbound:      chanx.NewUnboundedChan[Message](ctx, queueCapacity),
		outbound:     chanx.NewUnboundedChan[Message](ctx, queueCapacity),
		lost:         make(chan error, 1),
		queuesCtx:    ctx,
		queuesCancel: cancel,
		workerDone:   make(chan struct{}),
		logger:       logger.Component("broker"),
	}
}

// Address returns host:port of the broker
func (t *Transport) Address() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

// Connected reports whether the last connection is believed alive
func (t *Transport) Connected() bool {
	return t.connected.Load()
}

// Connect establishes the connection under the reconnect policy and starts
// the publish worker.
func (t *Transport) Connect(ctx context.Context) error {
	if err := t.connectWithRetry(ctx); err != nil {
		return err
	}

	t.workerOnce.Do(func() {
		workerCtx, cancel := context.WithCancel(context.Background())
		t.workerCancel = cancel
		go t.publishLoop(workerCtx)
	})
	return nil
}

// Reconnect replaces a lost connection and restores every subscription
func (t *Transport) Reconnect(ctx context.Context) error {
	t.logger.Warn().Str("broker", t.Address()).Msg("Reconnecting to broker")
	return t.connectWithRetry(ctx)
}

func (t *Transport) connectWithRetry(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.cfg.Reconnect.Initial
	policy.MaxInterval = t.cfg.Reconnect.MaxInterval

	attempt := func() (*paho.Client, error) {
		metrics.ObserveReconnect()
		client, err := t.dial(ctx)
		if err != nil {
			return nil, err
		}
		if err := t.subscribeAll(ctx, client); err != nil {
			_ = client.Disconnect(&paho.Disconnect{ReasonCode: 0})
			return nil, err
		}
		return client, nil
	}

	client, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(t.cfg.Reconnect.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.logger.Warn().
				Err(err).
				Dur("retry_in", next).
				Msg("Broker connection attempt failed")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to broker %s: %w", t.Address(), err)
	}

	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	t.drainLost()
	t.connected.Store(true)

	t.logger.Info().
		Str("broker", t.Address()).
		Str("client_id", t.cfg.ClientID).
		Msg("Connected to broker")
	return nil
}

func (t *Transport) dial(ctx context.Context) (*paho.Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: t.cfg.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				t.push(t.inbound, fromPublish(pr.Packet))
				return true, nil
			},
		},
		OnClientError: func(err error) {
			t.connectionLost(err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			t.connectionLost(fmt.Errorf("server disconnect, reason code %d", d.ReasonCode))
		},
	})

	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   t.cfg.ClientID,
		KeepAlive:  t.cfg.KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect refused: %w", err)
	}
	if ack.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("connect refused, reason code %d", ack.ReasonCode)
	}
	return client, nil
}

// Subscribe adds a topic filter. Filters are restored after a reconnect.
func (t *Transport) Subscribe(ctx context.Context, filter string) error {
	t.mu.Lock()
	t.filters = append(t.filters, filter)
	client := t.client
	t.mu.Unlock()

	if client == nil {
		return nil
	}
	return t.subscribe(ctx, client, []string{filter})
}

func (t *Transport) subscribeAll(ctx context.Context, client *paho.Client) error {
	t.mu.RLock()
	filters := append([]string(nil), t.filters...)
	t.mu.RUnlock()

	if len(filters) == 0 {
		return nil
	}
	return t.subscribe(ctx, client, filters)
}

func (t *Transport) subscribe(ctx context.Context, client *paho.Client, filters []string) error {
	options := make([]paho.SubscribeOptions, 0, len(filters))
	for _, filter := range filters {
		options = append(options, paho.SubscribeOptions{
			Topic:   filter,
			QoS:     t.cfg.QoS,
			NoLocal: true,
		})
	}

	if _, err := client.Subscribe(ctx, &paho.Subscribe{Subscriptions: options}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	for _, filter := range filters {
		t.logger.Info().Str("filter", filter).Msg("Subscribed")
	}
	return nil
}

// Publish queues msg for the publish worker. It does not wait for the network.
func (t *Transport) Publish(msg Message) {
	if !t.push(t.outbound, msg) {
		t.logger.Warn().Str("topic", msg.Topic).Msg("Transport closed, message dropped")
		metrics.ObservePublish(ErrClosed)
		return
	}
	metrics.SetQueueDepth(t.outbound.Len())
}

// push hands msg to q unless the transport is closed
func (t *Transport) push(q *chanx.UnboundedChan[Message], msg Message) bool {
	if t.queuesCtx.Err() != nil {
		return false
	}
	select {
	case q.In <- msg:
		return true
	case <-t.queuesCtx.Done():
		return false
	}
}

// Receive blocks until a request arrives, the connection is lost or ctx ends.
// Informational deliveries return ErrNoMessage; requests without a response
// topic return ErrMissingResponseTopic.
func (t *Transport) Receive(ctx context.Context) (Message, error) {
	// Requests already queued win over a lost signal
	select {
	case msg, ok := <-t.inbound.Out:
		return t.received(msg, ok)
	default:
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case err := <-t.lost:
		return Message{}, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	case msg, ok := <-t.inbound.Out:
		return t.received(msg, ok)
	}
}

func (t *Transport) received(msg Message, ok bool) (Message, error) {
	if !ok {
		return Message{}, ErrClosed
	}
	return msg, t.validate(msg)
}

func (t *Transport) validate(msg Message) error {
	if t.cfg.Informational != nil && t.cfg.Informational(msg.Topic) {
		return ErrNoMessage
	}
	if msg.ResponseTopic == "" {
		return fmt.Errorf("%w on %s", ErrMissingResponseTopic, msg.Topic)
	}
	return nil
}

func (t *Transport) connectionLost(err error) {
	if !t.connected.Swap(false) {
		return
	}
	t.logger.Error().Err(err).Msg("Broker connection lost")
	select {
	case t.lost <- err:
	default:
	}
}

func (t *Transport) drainLost() {
	for {
		select {
		case <-t.lost:
		default:
			return
		}
	}
}

func (t *Transport) publishLoop(ctx context.Context) {
	defer close(t.workerDone)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-t.outbound.Out:
			if !ok {
				return
			}
			metrics.SetQueueDepth(t.outbound.Len())
			t.send(ctx, msg)
		}
	}
}

func (t *Transport) send(ctx context.Context, msg Message) {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()

	var err error
	if client == nil || !t.connected.Load() {
		err = fmt.Errorf("not connected")
	} else {
		sendCtx, cancel := context.WithTimeout(ctx, t.cfg.PublishTimeout)
		_, err = client.Publish(sendCtx, msg.publish(t.cfg.QoS))
		cancel()
	}
	metrics.ObservePublish(err)

	if err != nil {
		t.logger.Error().
			Err(err).
			Str("topic", msg.Topic).
			Msg("Failed to publish, message dropped")
		return
	}

	t.logger.Debug().
		Str("topic", msg.Topic).
		Int("size", len(msg.Payload)).
		Msg("Published")
}

// Close waits up to drain for queued messages to go out, then stops the
// worker and disconnects.
func (t *Transport) Close(drain time.Duration) error {
	deadline := time.Now().Add(drain)
	for t.outbound.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	if t.workerCancel != nil {
		t.workerCancel()
		<-t.workerDone
	}

	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	t.connected.Store(false)
	defer t.queuesCancel()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(&paho.Disconnect{ReasonCode: 0}); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	t.logger.Info().Msg("Disconnected from broker")
	return nil
}
