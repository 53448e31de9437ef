// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	mqtls "github.com/absmach/mqttsub/pkg/tls"
	"github.com/absmach/mqttsub/topics"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Transport types.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Config holds all configuration for the subscriber.
type Config struct {
	Client        ClientConfig         `yaml:"client"`
	Transport     TransportConfig      `yaml:"transport"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	Log           LogConfig            `yaml:"log"`
	Telemetry     TelemetryConfig      `yaml:"telemetry"`
}

// ClientConfig holds MQTT session and subscribe settings.
type ClientConfig struct {
	ClientID     string        `yaml:"client_id"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	CleanSession bool          `yaml:"clean_session"`
	KeepAlive    time.Duration `yaml:"keep_alive"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// Capacity of the subscription table
	MaxSubscriptions int `yaml:"max_subscriptions"`
	WriteBufferSize  int `yaml:"write_buffer_size"`
	ReadBufferSize   int `yaml:"read_buffer_size"`

	// Reject SUBACKs whose packet id differs from the request
	VerifyPacketID bool `yaml:"verify_packet_id"`

	// SUBSCRIBE requests per second while resubscribing (0 = unlimited)
	ResubscribeRate  float64 `yaml:"resubscribe_rate"`
	ResubscribeBurst int     `yaml:"resubscribe_burst"`
}

// TransportConfig selects and configures the broker connection.
type TransportConfig struct {
	Type          string       `yaml:"type"`    // tcp, ws
	Address       string       `yaml:"address"` // host:port, for tcp
	URL           string       `yaml:"url"`     // ws:// or wss://, for ws
	MaxPacketSize int          `yaml:"max_packet_size"`
	TLS           mqtls.Config `yaml:"tls"`
}

// SubscriptionConfig is one topic filter subscribed at startup.
type SubscriptionConfig struct {
	Filter string `yaml:"filter"`
	QoS    byte   `yaml:"qos"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Endpoint        string  `yaml:"endpoint"` // OTLP gRPC endpoint
	Insecure        bool    `yaml:"insecure"`
	ServiceName     string  `yaml:"service_name"`
	ServiceVersion  string  `yaml:"service_version"`
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	TracesEnabled   bool    `yaml:"traces_enabled"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"` // 0.0 to 1.0
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			ClientID:         "mqttsub-" + uuid.NewString(),
			CleanSession:     true,
			KeepAlive:        60 * time.Second,
			ConnectTimeout:   10 * time.Second,
			CommandTimeout:   20 * time.Second,
			MaxSubscriptions: 5,
			WriteBufferSize:  512,
			ReadBufferSize:   512,
			ResubscribeBurst: 1,
		},
		Transport: TransportConfig{
			Type:          TransportTCP,
			Address:       "localhost:1883",
			URL:           "ws://localhost:8083/mqtt",
			MaxPacketSize: 1024 * 1024, // 1MB
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Insecure:        true,
			ServiceName:     "mqttsub",
			ServiceVersion:  "0.1.0",
			MetricsEnabled:  true,
			TracesEnabled:   false, // Disabled by default for performance
			TraceSampleRate: 0.1,   // 10% sampling when enabled
		},
	}
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Client.ClientID == "" && !c.Client.CleanSession {
		return fmt.Errorf("client.client_id required when clean_session is false")
	}
	if len(c.Client.ClientID) > 65535 {
		return fmt.Errorf("client.client_id too long")
	}
	if c.Client.KeepAlive < 0 || c.Client.KeepAlive > 65535*time.Second {
		return fmt.Errorf("client.keep_alive must be between 0 and 65535 seconds")
	}
	if c.Client.ConnectTimeout < 100*time.Millisecond {
		return fmt.Errorf("client.connect_timeout must be at least 100ms")
	}
	if c.Client.CommandTimeout < 100*time.Millisecond {
		return fmt.Errorf("client.command_timeout must be at least 100ms")
	}
	if c.Client.MaxSubscriptions < 1 {
		return fmt.Errorf("client.max_subscriptions must be at least 1")
	}
	if c.Client.WriteBufferSize < 16 || c.Client.ReadBufferSize < 16 {
		return fmt.Errorf("client buffer sizes must be at least 16 bytes")
	}
	if c.Client.ResubscribeRate < 0 {
		return fmt.Errorf("client.resubscribe_rate cannot be negative")
	}
	if c.Client.ResubscribeBurst < 1 {
		return fmt.Errorf("client.resubscribe_burst must be at least 1")
	}

	switch c.Transport.Type {
	case TransportTCP:
		if c.Transport.Address == "" {
			return fmt.Errorf("transport.address cannot be empty for tcp")
		}
	case TransportWebSocket:
		if c.Transport.URL == "" {
			return fmt.Errorf("transport.url cannot be empty for ws")
		}
	default:
		return fmt.Errorf("transport.type must be 'tcp' or 'ws'")
	}
	if c.Transport.MaxPacketSize < c.Client.ReadBufferSize {
		return fmt.Errorf("transport.max_packet_size must be at least client.read_buffer_size")
	}
	if err := c.Transport.TLS.Validate(); err != nil {
		return fmt.Errorf("transport.tls: %w", err)
	}

	if len(c.Subscriptions) > c.Client.MaxSubscriptions {
		return fmt.Errorf("%d subscriptions exceed client.max_subscriptions %d", len(c.Subscriptions), c.Client.MaxSubscriptions)
	}
	for i, s := range c.Subscriptions {
		if err := topics.ValidateFilter(s.Filter); err != nil {
			return fmt.Errorf("subscriptions[%d].filter: %w", i, err)
		}
		if s.QoS > 2 {
			return fmt.Errorf("subscriptions[%d].qos must be 0, 1 or 2", i)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint cannot be empty when telemetry is enabled")
		}
		if c.Telemetry.ServiceName == "" {
			return fmt.Errorf("telemetry.service_name cannot be empty")
		}
		if c.Telemetry.TraceSampleRate < 0 || c.Telemetry.TraceSampleRate > 1 {
			return fmt.Errorf("telemetry.trace_sample_rate must be between 0 and 1")
		}
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
