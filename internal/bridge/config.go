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
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"dabbridge/internal/broker"
	"dabbridge/internal/dab"
	"dabbridge/internal/settings"
)

// Config represents the bridge process configuration
type Config struct {
	Broker BrokerConfig `mapstructure:"broker"`
	Device DeviceConfig `mapstructure:"device"`
	Files  FilesConfig  `mapstructure:"files"`
	Status StatusConfig `mapstructure:"status"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// BrokerConfig contains MQTT connection settings
type BrokerConfig struct {
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	ClientID  string          `mapstructure:"client_id"` // generated when empty
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
}

// ReconnectConfig bounds broker reconnection
type ReconnectConfig struct {
	Initial     time.Duration `mapstructure:"initial"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
}

// DeviceConfig locates the vendor control plane
type DeviceConfig struct {
	Address   string `mapstructure:"address"`
	Debug     bool   `mapstructure:"debug"`
	Namespace string `mapstructure:"namespace"`
	ID        string `mapstructure:"id"` // read from the device when empty
}

// FilesConfig locates the device override files
type FilesConfig struct {
	Settings          string `mapstructure:"settings"`
	Keymap            string `mapstructure:"keymap"`
	PlatformKeymap    string `mapstructure:"platform_keymap"`
	PlatformLifecycle string `mapstructure:"platform_lifecycle"`
}

// StatusConfig enables the HTTP status endpoint when Listen is set
type StatusConfig struct {
	Listen string `mapstructure:"listen"`
}

// WatchConfig enables the marker-file watchdog when File is set
type WatchConfig struct {
	File string `mapstructure:"file"`
}

// DefaultConfigFile is read when --config is not given
const DefaultConfigFile = "dab-bridge.yml"

// NewViper returns a viper instance carrying every default, reading
// DAB_-prefixed environment variables.
func NewViper() *viper.Viper {
	v := viper.New()

	paths := settings.DefaultPaths()
	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", 1883)
	v.SetDefault("broker.client_id", "")
	v.SetDefault("broker.reconnect.initial", "1s")
	v.SetDefault("broker.reconnect.max_interval", "30s")
	v.SetDefault("broker.reconnect.max_attempts", 10)
	v.SetDefault("device.address", "127.0.0.1:9998")
	v.SetDefault("device.debug", false)
	v.SetDefault("device.namespace", dab.DefaultNamespace)
	v.SetDefault("device.id", "")
	v.SetDefault("files.settings", paths.Settings)
	v.SetDefault("files.keymap", paths.Keymap)
	v.SetDefault("files.platform_keymap", paths.PlatformKeymap)
	v.SetDefault("files.platform_lifecycle", paths.PlatformLifecycle)
	v.SetDefault("status.listen", "")
	v.SetDefault("watch.file", "")

	v.SetEnvPrefix("DAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads the YAML file at path into v, if it exists, and decodes
// the merged configuration.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// SaveDefaultConfig writes every default key to path as YAML
func SaveDefaultConfig(path string) error {
	v := NewViper()
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return fmt.Errorf("broker.host is required")
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port %d is out of range", c.Broker.Port)
	}
	if c.Broker.Reconnect.MaxAttempts == 0 {
		return fmt.Errorf("broker.reconnect.max_attempts must be at least 1")
	}
	if c.Broker.Reconnect.Initial <= 0 || c.Broker.Reconnect.MaxInterval < c.Broker.Reconnect.Initial {
		return fmt.Errorf("broker.reconnect intervals are invalid")
	}
	if c.Device.Address == "" {
		return fmt.Errorf("device.address is required")
	}
	if c.Device.Namespace == "" || strings.Contains(c.Device.Namespace, "/") {
		return fmt.Errorf("device.namespace must be a single topic level")
	}
	return nil
}

// BrokerConfig converts the broker section into transport settings
func (c *Config) BrokerConfig() broker.Config {
	cfg := broker.DefaultConfig()
	cfg.Host = c.Broker.Host
	cfg.Port = c.Broker.Port
	cfg.ClientID = c.Broker.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = "dab-bridge-" + uuid.NewString()[:8]
	}
	cfg.Reconnect = broker.ReconnectPolicy{
		Initial:     c.Broker.Reconnect.Initial,
		MaxInterval: c.Broker.Reconnect.MaxInterval,
		MaxAttempts: c.Broker.Reconnect.MaxAttempts,
	}
	cfg.Informational = dab.IsInformational
	return cfg
}

// SettingsOptions converts the device and files sections into settings options
func (c *Config) SettingsOptions() settings.Options {
	return settings.Options{
		Address:  c.Device.Address,
		Debug:    c.Device.Debug,
		DeviceID: c.Device.ID,
		Paths: settings.Paths{
			Settings:          c.Files.Settings,
			Keymap:            c.Files.Keymap,
			PlatformKeymap:    c.Files.PlatformKeymap,
			PlatformLifecycle: c.Files.PlatformLifecycle,
		},
	}
}
