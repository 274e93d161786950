package telemetry

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dabbridge/internal/broker"
	"dabbridge/internal/dab"
	"dabbridge/internal/logger"
	"dabbridge/internal/metrics"
	"dabbridge/internal/rdk"
)

// Publisher enqueues outbound broker messages
type Publisher interface {
	Publish(msg broker.Message)
}

// Sampler reads the current device memory usage in kB
type Sampler interface {
	MemoryUsage() (uint64, error)
}

// Task is the periodic telemetry publisher. Start and Stop are called from
// the dispatch loop only; at most one worker exists at any time.
type Task struct {
	running   atomic.Bool
	done      chan struct{}
	stop      chan struct{}
	publisher Publisher
	sampler   Sampler
	topic     string
	logger    zerolog.Logger
}

// NewTask creates a stopped task publishing on topic
func NewTask(publisher Publisher, sampler Sampler, topic string) *Task {
	return &Task{
		publisher: publisher,
		sampler:   sampler,
		topic:     topic,
		logger:    logger.Component("telemetry"),
	}
}

// Running reports whether a worker is active
func (t *Task) Running() bool {
	return t.running.Load()
}

// MaxPeriod is the longest accepted publish period
const MaxPeriod = 24 * time.Hour

// Start launches a worker publishing every period. A running worker is
// stopped and joined first. Periods outside (0, MaxPeriod] start nothing.
func (t *Task) Start(period time.Duration) {
	if period <= 0 || period > MaxPeriod {
		t.logger.Warn().Dur("period", period).Msg("Refusing telemetry period out of range")
		return
	}
	if t.running.Load() {
		t.Stop()
	}

	t.running.Store(true)
	t.done = make(chan struct{})
	t.stop = make(chan struct{})
	go t.run(period, t.stop, t.done)

	metrics.SetTelemetryRunning(true)
	t.logger.Info().Dur("period", period).Msg("Telemetry started")
}

// Stop clears the running flag and waits for the worker to exit. The wait is
// bounded by one sample and publish; the sleep is interrupted.
func (t *Task) Stop() {
	t.running.Store(false)
	if t.done == nil {
		return
	}

	close(t.stop)
	<-t.done
	t.done = nil
	t.stop = nil

	metrics.SetTelemetryRunning(false)
	t.logger.Info().Msg("Telemetry stopped")
}

func (t *Task) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for t.running.Load() {
		t.publish()

		timer := time.NewTimer(period)
		select {
		case <-timer.C:
		case <-stop:
			timer.Stop()
			return
		}
	}
}

func (t *Task) publish() {
	used, err := t.sampler.MemoryUsage()
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to sample memory usage")
		used = 0
	}

	payload, err := json.Marshal(dab.TelemetryMetric{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Metric:    "memory",
		Value:     used,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to encode telemetry metric")
		return
	}

	t.publisher.Publish(broker.Message{Topic: t.topic, Payload: payload})
}

// MemorySampler samples used RAM through RDKShell
type MemorySampler struct {
	RPC rdk.Caller
}

// MemoryUsage returns total minus free RAM in kB
func (s MemorySampler) MemoryUsage() (uint64, error) {
	mem, err := rdk.Invoke[rdk.SystemMemoryResult](s.RPC, rdk.GetSystemMemory, nil)
	if err != nil {
		return 0, err
	}
	if mem.FreeRAM > mem.TotalRAM {
		return 0, nil
	}
	return mem.TotalRAM - mem.FreeRAM, nil
}
