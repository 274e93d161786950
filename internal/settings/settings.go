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

package settings

import (
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"dabbridge/internal/logger"
	"dabbridge/internal/rdk"
)

// Paths locates the optional on-device override files
type Paths struct {
	Settings          string `yaml:"settings"`
	Keymap            string `yaml:"keymap"`
	PlatformKeymap    string `yaml:"platform_keymap"`
	PlatformLifecycle string `yaml:"platform_lifecycle"`
}

// DefaultPaths returns the override file locations used on stock firmware
func DefaultPaths() Paths {
	return Paths{
		Settings:          "/etc/dab/settings.json",
		Keymap:            "/etc/dab/keymap.json",
		PlatformKeymap:    "/opt/dab_platform_keymap.json",
		PlatformLifecycle: "/opt/dab_platform_app_lifecycle.json",
	}
}

// Options are the values known before any device call is made
type Options struct {
	Address  string
	Debug    bool
	DeviceID string // skips the serial number lookup when set
	Paths    Paths
}

// PropertyReader reads single device facts
type PropertyReader interface {
	Property(method rdk.Method, key string) (string, error)
}

// Settings is the read-only device configuration shared by every component.
// Fields backed by files or device calls are resolved on first access and
// kept for the process lifetime.
type Settings struct {
	address string
	debug   bool
	paths   Paths
	props   PropertyReader
	logger  zerolog.Logger

	deviceIDOnce sync.Once
	deviceID     string
	deviceIDErr  error

	ipOnce sync.Once
	ip     string

	keymapOnce sync.Once
	keymap     map[string]int

	timeoutsOnce sync.Once
	timeouts     map[string]AppTimeouts

	platformOnce sync.Once
	platform     Platform
}

// New builds the settings for one device
func New(opts Options, props PropertyReader) *Settings {
	s := &Settings{
		address:  opts.Address,
		debug:    opts.Debug,
		paths:    opts.Paths,
		props:    props,
		deviceID: opts.DeviceID,
		logger:   logger.Component("settings"),
	}
	if opts.DeviceID != "" {
		s.deviceIDOnce.Do(func() {})
	}
	return s
}

// DeviceAddress returns the host:port of the vendor control plane
func (s *Settings) DeviceAddress() string {
	return s.address
}

// Debug reports whether verbose vendor logging is on
func (s *Settings) Debug() bool {
	return s.debug
}

// Paths returns the override file locations
func (s *Settings) Paths() Paths {
	return s.paths
}

// DeviceID returns the device id, reading the serial number from the device
// on first use. A failure is remembered; the caller is expected to treat it
// as fatal.
func (s *Settings) DeviceID() (string, error) {
	s.deviceIDOnce.Do(func() {
		id, err := s.props.Property(rdk.GetSerialNumber, "serialNumber")
		if err != nil {
			s.deviceIDErr = fmt.Errorf("failed to read device id: %w", err)
			return
		}
		if id == "" {
			s.deviceIDErr = fmt.Errorf("device reported an empty serial number")
			return
		}
		s.deviceID = id
	})
	return s.deviceID, s.deviceIDErr
}

// IP returns the device's IP address, falling back to the host part of the
// configured address when the network service cannot be queried.
func (s *Settings) IP() string {
	s.ipOnce.Do(func() {
		ip, err := s.props.Property(rdk.GetIPSettings, "ipaddr")
		if err == nil && ip != "" {
			s.ip = ip
			return
		}
		s.logger.Warn().Err(err).Msg("Failed to read IP settings, using configured address")
		host, _, splitErr := net.SplitHostPort(s.address)
		if splitErr != nil {
			host = s.address
		}
		s.ip = host
	})
	return s.ip
}
