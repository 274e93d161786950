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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dabbridge/internal/broker"
	"dabbridge/internal/dab"
	"dabbridge/internal/handlers"
	"dabbridge/internal/lifecycle"
	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
	"dabbridge/internal/settings"
	"dabbridge/internal/telemetry"
	"dabbridge/internal/watchdog"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns every long-lived component of one bridge process
type Daemon struct {
	config    *Config
	settings  *settings.Settings
	rpc       *rdk.Client
	events    *rdk.EventListener
	transport *broker.Transport
	telemetry *telemetry.Task
	dispatch  *Dispatcher
	status    *StatusServer
	topics    dab.Topics
	started   time.Time
	logger    zerolog.Logger
}

// NewDaemon creates the daemon. No network activity happens until Run.
func NewDaemon(config *Config) *Daemon {
	rpc := rdk.NewClient(config.Device.Address, config.Device.Debug)
	return &Daemon{
		config:    config,
		rpc:       rpc,
		settings:  settings.New(config.SettingsOptions(), rpc),
		events:    rdk.NewEventListener(config.Device.Address),
		transport: broker.New(config.BrokerConfig()),
		logger:    logger.Component("daemon"),
	}
}

// setup resolves the device id and wires the request path
func (d *Daemon) setup() error {
	deviceID, err := d.settings.DeviceID()
	if err != nil {
		return err
	}
	d.topics = dab.Topics{Namespace: d.config.Device.Namespace, DeviceID: deviceID}

	controller := lifecycle.NewController(d.rpc, d.settings,
		lifecycle.WithWakeups(d.events.Notifications()))

	d.telemetry = telemetry.NewTask(d.transport, telemetry.MemorySampler{RPC: d.rpc}, d.topics.Telemetry())

	table := dab.Table{}
	handlers.Register(table, handlers.Deps{
		RPC:       d.rpc,
		Lifecycle: controller,
		Settings:  d.settings,
	}, dab.OpDeviceTelemetryStart, dab.OpDeviceTelemetryStop)

	d.dispatch = NewDispatcher(d.transport, table, d.telemetry, d.settings, d.topics)

	if d.config.Status.Listen != "" {
		d.status = NewStatusServer(d.config.Status.Listen, d.Status)
	}
	return nil
}

// Run starts the bridge and blocks until a shutdown signal, removal of the
// marker file, or an unrecoverable broker failure.
func (d *Daemon) Run() error {
	d.started = time.Now()

	d.logger.Info().
		Str("device", d.rpc.Address()).
		Str("broker", d.transport.Address()).
		Bool("debug", d.settings.Debug()).
		Msg("Starting DAB bridge")

	if err := d.setup(); err != nil {
		return fmt.Errorf("failed to initialize bridge: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			d.logger.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if d.config.Watch.File != "" {
		wd, err := watchdog.New(d.config.Watch.File)
		if err != nil {
			return err
		}
		go wd.Run(ctx, cancel)
	}

	if d.status != nil {
		d.status.Start()
	}

	go d.events.Run(ctx)

	if err := d.transport.Connect(ctx); err != nil {
		d.shutdown()
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	for _, filter := range []string{d.topics.Subscription(), dab.DiscoveryTopic} {
		if err := d.transport.Subscribe(ctx, filter); err != nil {
			d.shutdown()
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	d.dispatch.Announce()

	d.logger.Info().
		Str("device_id", d.topics.DeviceID).
		Str("ip", d.settings.IP()).
		Str("subscription", d.topics.Subscription()).
		Msg("DAB bridge started successfully")

	err := d.dispatch.Run(ctx)
	d.shutdown()
	if err != nil {
		return fmt.Errorf("dispatch loop failed: %w", err)
	}
	return nil
}

func (d *Daemon) shutdown() {
	d.logger.Info().Msg("Stopping DAB bridge")

	if d.telemetry != nil && d.telemetry.Running() {
		d.telemetry.Stop()
	}

	if d.status != nil {
		if err := d.status.Stop(shutdownTimeout); err != nil {
			d.logger.Error().Err(err).Msg("Error stopping status server")
		}
	}

	if err := d.transport.Close(shutdownTimeout); err != nil {
		d.logger.Error().Err(err).Msg("Error closing broker connection")
	}

	d.logger.Info().Msg("DAB bridge stopped")
}

// Status returns the current state of the daemon
func (d *Daemon) Status() Status {
	status := Status{
		DeviceID:  d.topics.DeviceID,
		Broker:    d.transport.Address(),
		Connected: d.transport.Connected(),
		Uptime:    time.Since(d.started).Round(time.Second).String(),
	}
	if d.telemetry != nil {
		status.TelemetryRunning = d.telemetry.Running()
	}
	if d.dispatch != nil {
		status.Handled = d.dispatch.Handled()
	}
	return status
}
