package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes sure variables from the host do not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.Equal(t, 10*time.Second, cfg.Deadline())
	assert.Equal(t, "jarvis-homewizard-exporter", cfg.Source)
	assert.Equal(t, "/configs/config.yaml", cfg.Mapping.Path)
	assert.Equal(t, "homewizard.local", cfg.Device.Address)
	assert.Equal(t, "http", cfg.Device.Scheme)
	assert.Equal(t, "v1", cfg.Device.APIVersion)
	assert.Equal(t, "jarvis-nats", cfg.NATS.Host)
	assert.Equal(t, 4222, cfg.NATS.Port)
	assert.Equal(t, "jarvis-measurements", cfg.NATS.Subject)
	assert.Equal(t, AckModeFlush, cfg.NATS.AckMode)
	assert.False(t, cfg.NATS.EnsureStream)
	assert.Equal(t, "JARVIS_MEASUREMENTS", cfg.NATS.Stream)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEOUT_SECONDS", "25")
	t.Setenv("CONFIG_PATH", "/mnt/mapping.yaml")
	t.Setenv("DEVICE_ADDRESS", "192.168.1.20")
	t.Setenv("NATS_HOST", "nats.jarvis.svc")
	t.Setenv("NATS_PORT", "4333")
	t.Setenv("NATS_SUBJECT", "jarvis.measurements.p1")
	t.Setenv("NATS_ACK_MODE", "jetstream")
	t.Setenv("NATS_ENSURE_STREAM", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.TimeoutSeconds)
	assert.Equal(t, "/mnt/mapping.yaml", cfg.Mapping.Path)
	assert.Equal(t, "192.168.1.20", cfg.Device.Address)
	assert.Equal(t, "nats://nats.jarvis.svc:4333", cfg.NATS.URL())
	assert.Equal(t, "jarvis.measurements.p1", cfg.NATS.Subject)
	assert.Equal(t, AckModeJetStream, cfg.NATS.AckMode)
	assert.True(t, cfg.NATS.EnsureStream)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "exporter.yaml")

	configContent := `
timeout_seconds: 30
device:
  address: 10.0.0.5
  api_version: v2
nats:
  host: broker
  subject: energy.p1
logging:
  format: text
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, "10.0.0.5", cfg.Device.Address)
	assert.Equal(t, "http://10.0.0.5/api/v2/data", cfg.Device.DataURL())
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL())
	assert.Equal(t, "energy.p1", cfg.NATS.Subject)
	assert.Equal(t, "text", cfg.Logging.Format)
	// Defaults remain for keys not in the file
	assert.Equal(t, "/configs/config.yaml", cfg.Mapping.Path)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "exporter.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("timeout_seconds: 30\n"), 0644))
	t.Setenv("TIMEOUT_SECONDS", "5")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
}

func TestLoad_NonExistentFile(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEOUT_SECONDS", "ten")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TimeoutSeconds: 10,
			Mapping:        MappingConfig{Path: "/configs/config.yaml"},
			Device:         DeviceConfig{Address: "10.0.0.5", Scheme: "http", APIVersion: "v1"},
			NATS:           NATSConfig{Host: "jarvis-nats", Port: 4222, Subject: "jarvis-measurements", AckMode: AckModeFlush},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero timeout", func(c *Config) { c.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"negative timeout", func(c *Config) { c.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"no mapping path", func(c *Config) { c.Mapping.Path = " " }, "mapping.path"},
		{"no device", func(c *Config) { c.Device.Address = "" }, "device.address"},
		{"bad scheme", func(c *Config) { c.Device.Scheme = "ftp" }, "device.scheme"},
		{"no broker", func(c *Config) { c.NATS.Host = "" }, "nats.host"},
		{"wildcard subject", func(c *Config) { c.NATS.Subject = "jarvis.>" }, "nats.subject"},
		{"empty subject", func(c *Config) { c.NATS.Subject = "" }, "nats.subject"},
		{"unknown ack mode", func(c *Config) { c.NATS.AckMode = "none" }, "nats.ack_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNATSConfig_URL(t *testing.T) {
	assert.Equal(t, "nats://jarvis-nats:4222", NATSConfig{Host: "jarvis-nats", Port: 4222}.URL())
	assert.Equal(t, "tls://secure:4443", NATSConfig{Host: "tls://secure:4443", Port: 4222}.URL())
	assert.Equal(t, "nats://[::1]:4222", NATSConfig{Host: "::1", Port: 4222}.URL())
}

func TestDeviceConfig_DataURL(t *testing.T) {
	d := DeviceConfig{Address: "192.168.1.20/", APIVersion: "v1"}
	assert.Equal(t, "http://192.168.1.20/api/v1/data", d.DataURL())

	d.Scheme = "https"
	assert.Equal(t, "https://192.168.1.20/api/v1/data", d.DataURL())
}
