package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the MHUB bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig describes the hub being polled and the timing of every
// request made against it. All durations are in seconds.
type DeviceConfig struct {
	// Host is the hub's IPv4 address or hostname, without scheme or path.
	// When empty the host of the stored config entry is used.
	Host string `yaml:"host"`

	// ScanInterval is the time between scheduled refresh cycles.
	ScanInterval int `yaml:"scan_interval"`

	// FetchTimeout bounds one refresh cycle (both data requests share it).
	FetchTimeout int `yaml:"fetch_timeout"`

	// ProbeTimeout bounds the power-capability probe. Must be shorter than
	// FetchTimeout.
	ProbeTimeout int `yaml:"probe_timeout"`

	// CommandTimeout bounds a single control request.
	CommandTimeout int `yaml:"command_timeout"`

	// SetupTimeout bounds the connectivity check run when an entry is created.
	SetupTimeout int `yaml:"setup_timeout"`

	// UserAgent is sent with every request. Some firmware rejects unknown agents.
	UserAgent string `yaml:"user_agent"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DiscoveryConfig controls Home Assistant MQTT discovery announcements.
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
	NodeID  string `yaml:"node_id"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MHUB_SECTION_KEY
// For example: MHUB_DEVICE_HOST, MHUB_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ScanInterval:   30,
			FetchTimeout:   10,
			ProbeTimeout:   2,
			CommandTimeout: 5,
			SetupTimeout:   8,
			UserAgent:      "curl/8.0",
		},
		Database: DatabaseConfig{
			Path:        "./data/mhub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mhub-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Prefix:  "homeassistant",
			NodeID:  "mhub",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MHUB_DEVICE_HOST"); v != "" {
		cfg.Device.Host = v
	}
	if v := os.Getenv("MHUB_DEVICE_SCAN_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Device.ScanInterval = n
		}
	}

	if v := os.Getenv("MHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("MHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("MHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("MHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.Host != "" && !ValidHost(c.Device.Host) {
		errs = append(errs, "device.host must be a bare hostname or IP address (no scheme or path)")
	}
	if c.Device.ScanInterval < 1 {
		errs = append(errs, "device.scan_interval must be at least 1 second")
	}
	if c.Device.FetchTimeout < 1 {
		errs = append(errs, "device.fetch_timeout must be at least 1 second")
	}
	if c.Device.ProbeTimeout < 1 {
		errs = append(errs, "device.probe_timeout must be at least 1 second")
	} else if c.Device.ProbeTimeout >= c.Device.FetchTimeout {
		errs = append(errs, "device.probe_timeout must be shorter than device.fetch_timeout")
	}
	if c.Device.CommandTimeout < 1 {
		errs = append(errs, "device.command_timeout must be at least 1 second")
	}
	if c.Device.SetupTimeout < 1 {
		errs = append(errs, "device.setup_timeout must be at least 1 second")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Discovery.Enabled && c.Discovery.Prefix == "" {
		errs = append(errs, "discovery.prefix is required when discovery is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ValidHost reports whether host is a bare hostname or address, optionally
// with a port. Schemes, paths and whitespace are rejected.
func ValidHost(host string) bool {
	if host == "" || strings.TrimSpace(host) != host {
		return false
	}
	return !strings.ContainsAny(host, "/\\ ?#@")
}

// ScanIntervalDuration returns the refresh interval as a Duration.
func (d DeviceConfig) ScanIntervalDuration() time.Duration {
	return time.Duration(d.ScanInterval) * time.Second
}

// FetchTimeoutDuration returns the per-cycle fetch budget as a Duration.
func (d DeviceConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(d.FetchTimeout) * time.Second
}

// ProbeTimeoutDuration returns the power probe timeout as a Duration.
func (d DeviceConfig) ProbeTimeoutDuration() time.Duration {
	return time.Duration(d.ProbeTimeout) * time.Second
}

// CommandTimeoutDuration returns the control request timeout as a Duration.
func (d DeviceConfig) CommandTimeoutDuration() time.Duration {
	return time.Duration(d.CommandTimeout) * time.Second
}

// SetupTimeoutDuration returns the entry setup check timeout as a Duration.
func (d DeviceConfig) SetupTimeoutDuration() time.Duration {
	return time.Duration(d.SetupTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
