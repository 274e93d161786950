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

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"dabbridge/internal/broker"
	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/metrics"
	"dabbridge/internal/telemetry"
)

// Transport is the broker surface the dispatcher needs
type Transport interface {
	Publish(msg broker.Message)
	Receive(ctx context.Context) (broker.Message, error)
	Reconnect(ctx context.Context) error
}

// Telemetry is the periodic publisher the telemetry operations control
type Telemetry interface {
	Start(period time.Duration)
	Stop()
	Running() bool
}

// Identity answers discovery requests
type Identity interface {
	IP() string
}

// Dispatcher runs the single request/response loop: receive, decode, execute,
// encode, publish. Requests are handled one at a time in arrival order.
type Dispatcher struct {
	transport Transport
	handlers  dab.Table
	telemetry Telemetry
	identity  Identity
	topics    dab.Topics
	replies   *ReplyCache
	handled   atomic.Int64
	logger    zerolog.Logger
}

// NewDispatcher wires the dispatcher for one device
func NewDispatcher(transport Transport, handlers dab.Table, task Telemetry, identity Identity, topics dab.Topics) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		handlers:  handlers,
		telemetry: task,
		identity:  identity,
		topics:    topics,
		replies:   NewReplyCache(128, 10*time.Minute),
		logger:    logger.Component("dispatcher"),
	}
}

// Handled returns the number of replies published so far
func (d *Dispatcher) Handled() int64 {
	return d.handled.Load()
}

// Operations lists every operation the dispatcher answers
func (d *Dispatcher) Operations() []string {
	return append(d.handlers.Operations(), dab.OpDeviceTelemetryStart, dab.OpDeviceTelemetryStop)
}

// Run processes requests until ctx ends or the broker connection cannot be
// restored.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info().
		Str("subscription", d.topics.Subscription()).
		Int("operations", len(d.handlers)).
		Msg("Dispatch loop started")

	for {
		msg, err := d.transport.Receive(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			d.logger.Info().Msg("Dispatch loop stopping")
			return nil
		case errors.Is(err, broker.ErrNoMessage):
			continue
		case errors.Is(err, broker.ErrConnectionLost):
			if err := d.transport.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		default:
			d.logger.Error().Err(err).Msg("Dropping malformed message")
			continue
		}

		if msg.Duplicate {
			if reply, ok := d.replies.Lookup(msg.ResponseTopic, msg.CorrelationData); ok {
				d.logger.Debug().Str("topic", msg.Topic).Msg("Replaying reply for redelivered request")
				d.transport.Publish(msg.Reply(reply))
				continue
			}
		}

		reply, ok := d.Handle(msg.Topic, msg.Payload)
		if !ok {
			continue
		}
		d.replies.Store(msg.ResponseTopic, msg.CorrelationData, reply)
		d.transport.Publish(msg.Reply(reply))
		d.handled.Add(1)
	}
}

// Handle executes the request on topic and returns the encoded reply. ok is
// false for informational messages, which get no reply.
func (d *Dispatcher) Handle(topic string, payload []byte) (reply []byte, ok bool) {
	start := time.Now()

	if topic == dab.DiscoveryTopic {
		return d.discovery(), true
	}

	operation, mine := d.topics.Operation(topic)
	if !mine {
		operation = topic
	}
	if operation == dab.MessagesSuffix || dab.IsInformational(topic) {
		return nil, false
	}

	result, err := d.execute(operation, payload)
	reply = dab.Encode(result, err)

	status := dab.StatusOK
	if err != nil {
		status = dab.KindOf(err).Status()
		d.logger.Warn().
			Str("operation", operation).
			Int("status", status).
			Err(err).
			Msg("Request failed")
	} else {
		d.logger.Info().
			Str("operation", operation).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	}
	metrics.ObserveRequest(operation, status, time.Since(start))

	return reply, true
}

func (d *Dispatcher) execute(operation string, payload []byte) (interface{}, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, dab.BadRequest("empty payload")
	}

	if handler, found := d.handlers.Lookup(operation); found {
		return handler.Handle(payload)
	}

	switch operation {
	case dab.OpDeviceTelemetryStart:
		return dab.Typed[dab.TelemetryStartRequest, dab.TelemetryStartResponse](d.startTelemetry).Handle(payload)
	case dab.OpDeviceTelemetryStop:
		return dab.Typed[dab.EmptyRequest, dab.EmptyResponse](d.stopTelemetry).Handle(payload)
	}

	return nil, dab.NotImplemented(operation)
}

func (d *Dispatcher) startTelemetry(req dab.TelemetryStartRequest) (dab.TelemetryStartResponse, error) {
	if req.Duration <= 0 {
		return dab.TelemetryStartResponse{}, dab.BadRequest("duration must be a positive number of milliseconds")
	}
	if int64(req.Duration) > telemetry.MaxPeriod.Milliseconds() {
		return dab.TelemetryStartResponse{}, dab.BadRequest("duration must be at most %d milliseconds", telemetry.MaxPeriod.Milliseconds())
	}
	d.telemetry.Start(time.Duration(req.Duration) * time.Millisecond)
	return dab.TelemetryStartResponse{Duration: req.Duration}, nil
}

func (d *Dispatcher) stopTelemetry(dab.EmptyRequest) (dab.EmptyResponse, error) {
	d.telemetry.Stop()
	return dab.EmptyResponse{}, nil
}

// discovery answers with a fixed shape, outside the status envelope
func (d *Dispatcher) discovery() []byte {
	data, _ := json.Marshal(dab.DiscoveryResponse{
		IP:       d.identity.IP(),
		DeviceID: d.topics.DeviceID,
	})
	return data
}

// Announce publishes the startup notice on the informational topic
func (d *Dispatcher) Announce() {
	data, _ := json.Marshal(dab.OnlineNotice{Status: "online", DeviceID: d.topics.DeviceID})
	d.transport.Publish(broker.Message{Topic: d.topics.Messages(), Payload: data})
}
