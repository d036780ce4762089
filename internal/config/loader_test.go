package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_RedisBroker(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 3000
broker:
  type: redis
  redis:
    host: localhost
    port: 6379
relay:
  channel: chat-channel
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Broker.Type)
	assert.Equal(t, "localhost", cfg.Broker.Redis.Host)
	assert.Equal(t, 6379, cfg.Broker.Redis.Port)
	assert.Equal(t, "chat-channel", cfg.Relay.Channel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "chat-channel", cfg.Relay.Channel)
	assert.Equal(t, 256, cfg.Socket.MaxClients)
	assert.Equal(t, 64, cfg.Socket.SendBufferSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EmptyBrokerTypeAllowed(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
broker:
  type: ""
`)

	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoad_UnknownBrokerType(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
broker:
  type: rabbitmq
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown broker type")
}

func TestLoad_RedisHostRequired(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
broker:
  type: redis
  redis:
    port: 6379
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis host is required")
}

func TestLoad_KafkaBrokersRequired(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
broker:
  type: kafka
  kafka:
    group_id: relay
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one Kafka broker is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateStatic_RateLimit(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Relay: RelayConfig{
			Channel: "chat-channel",
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     0,
				Burst:   10,
			},
		},
	}

	err := ValidateStatic(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rps must be positive")
}
