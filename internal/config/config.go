package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds all configuration options for the iiobridge daemon.
type Config struct {
	// MQTT configuration. An empty URL runs the daemon in log-only mode.
	MQTTUrl         string `yaml:"mqtt_url"`
	DiscoveryPrefix string `yaml:"discovery_prefix" validate:"required"`

	// Device configuration
	DeviceID string `yaml:"device_id" validate:"required"`

	// Hardware discovery
	ScanRoot string `yaml:"scan_root" validate:"required"`

	// Configuration record source
	RecordDir string `yaml:"record_dir" validate:"required"`

	// Reconciliation policy
	DebounceWindow  time.Duration `yaml:"debounce_window"`
	DefaultPollRate time.Duration `yaml:"default_poll_rate"`

	// Application configuration
	Verbose bool `yaml:"verbose"`
}

// GetDefaultConfig returns a configuration with sensible defaults.
func GetDefaultConfig() *Config {
	return &Config{
		DiscoveryPrefix: "homeassistant",
		DeviceID:        "", // filled in by main
		ScanRoot:        DefaultScanRoot,
		RecordDir:       DefaultRecordDir,
		DebounceWindow:  DefaultDebounceWindow,
		DefaultPollRate: DefaultPollRate,
	}
}

// LoadFile overlays the YAML file at path onto the config.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and normalizes out-of-range policy
// values back to their defaults.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// MQTT validation - support both WebSocket and standard MQTT protocols
	if c.MQTTUrl != "" {
		if !strings.HasPrefix(c.MQTTUrl, "ws://") &&
			!strings.HasPrefix(c.MQTTUrl, "wss://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtt://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtts://") {
			return fmt.Errorf("MQTT URL must use supported protocol (ws://, wss://, mqtt://, or mqtts://)")
		}
	}

	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.DefaultPollRate <= 0 {
		c.DefaultPollRate = DefaultPollRate
	}
	return nil
}

// HasMQTT returns true if MQTT is configured.
func (c *Config) HasMQTT() bool {
	return c.MQTTUrl != ""
}
