package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging"
)

// Ack modes supported by the publisher.
const (
	AckModeFlush     = "flush"
	AckModeJetStream = "jetstream"
)

type Config struct {
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	Source         string        `mapstructure:"source"`
	Mapping        MappingConfig `mapstructure:"mapping"`
	Device         DeviceConfig  `mapstructure:"device"`
	NATS           NATSConfig    `mapstructure:"nats"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

type MappingConfig struct {
	Path string `mapstructure:"path"`
}

type DeviceConfig struct {
	Address    string `mapstructure:"address"`
	Scheme     string `mapstructure:"scheme"`
	APIVersion string `mapstructure:"api_version"`
}

// DataURL returns the telemetry endpoint, e.g. http://192.168.1.20/api/v1/data.
func (d DeviceConfig) DataURL() string {
	scheme := d.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/api/%s/data", scheme, strings.TrimSuffix(d.Address, "/"), d.APIVersion)
}

type NATSConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Subject      string `mapstructure:"subject"`
	AckMode      string `mapstructure:"ack_mode"`
	ClientName   string `mapstructure:"client_name"`
	EnsureStream bool   `mapstructure:"ensure_stream"`
	Stream       string `mapstructure:"stream"`
}

// URL returns the broker URL. A host that already carries a scheme is used as is.
func (n NATSConfig) URL() string {
	if strings.Contains(n.Host, "://") {
		return n.Host
	}
	return "nats://" + net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Deadline returns the overall run deadline.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the values that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	var errs []error

	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if strings.TrimSpace(c.Mapping.Path) == "" {
		errs = append(errs, errors.New("mapping.path is required"))
	}
	if strings.TrimSpace(c.Device.Address) == "" {
		errs = append(errs, errors.New("device.address is required"))
	}
	if c.Device.Scheme != "http" && c.Device.Scheme != "https" {
		errs = append(errs, fmt.Errorf("device.scheme must be http or https, got %q", c.Device.Scheme))
	}
	if strings.TrimSpace(c.NATS.Host) == "" {
		errs = append(errs, errors.New("nats.host is required"))
	}
	if !messaging.ValidSubject(c.NATS.Subject) {
		errs = append(errs, fmt.Errorf("nats.subject %q is not a valid publish subject", c.NATS.Subject))
	}
	switch c.NATS.AckMode {
	case AckModeFlush, AckModeJetStream:
	default:
		errs = append(errs, fmt.Errorf("nats.ack_mode must be %q or %q, got %q", AckModeFlush, AckModeJetStream, c.NATS.AckMode))
	}

	return errors.Join(errs...)
}

// envBindings maps config keys onto the variable names the deployment sets.
var envBindings = map[string]string{
	"timeout_seconds":    "TIMEOUT_SECONDS",
	"source":             "SOURCE",
	"mapping.path":       "CONFIG_PATH",
	"device.address":     "DEVICE_ADDRESS",
	"device.scheme":      "DEVICE_SCHEME",
	"device.api_version": "DEVICE_API_VERSION",
	"nats.host":          "NATS_HOST",
	"nats.port":          "NATS_PORT",
	"nats.subject":       "NATS_SUBJECT",
	"nats.ack_mode":      "NATS_ACK_MODE",
	"nats.client_name":   "NATS_CLIENT_NAME",
	"nats.ensure_stream": "NATS_ENSURE_STREAM",
	"nats.stream":        "NATS_STREAM",
	"logging.level":      "LOG_LEVEL",
	"logging.format":     "LOG_FORMAT",
}

// Load reads configuration from defaults, an optional file and the environment,
// in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("source", "jarvis-homewizard-exporter")
	v.SetDefault("mapping.path", "/configs/config.yaml")
	v.SetDefault("device.address", "homewizard.local")
	v.SetDefault("device.scheme", "http")
	v.SetDefault("device.api_version", "v1")
	v.SetDefault("nats.host", "jarvis-nats")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.subject", messaging.SubjectMeasurements)
	v.SetDefault("nats.ack_mode", AckModeFlush)
	v.SetDefault("nats.client_name", "jarvis-homewizard-exporter")
	v.SetDefault("nats.ensure_stream", false)
	v.SetDefault("nats.stream", messaging.StreamMeasurements)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables override; the deployment uses unprefixed names
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// Only read a file when one is given explicitly
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
