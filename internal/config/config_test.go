package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, values map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, map[string]any{"SIGNING_KEYS": "k1, k2,,"}))
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "9083", cfg.GRPCPort)
	assert.Equal(t, DriverMemory, cfg.PubSubDriver)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 4000, cfg.MaxMessageLength)
	assert.Equal(t, 500*time.Millisecond, cfg.TypingInterval)
	assert.Equal(t, 3*time.Second, cfg.TypingTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.SigningKeys)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("PUBSUB_DRIVER", "Redis")
	t.Setenv("SIGNING_KEYS", "secret")

	cfg, err := Load(newViper(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, DriverRedis, cfg.PubSubDriver)
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown driver":   {"SIGNING_KEYS": "k", "PUBSUB_DRIVER": "kafka"},
		"zero page size":   {"SIGNING_KEYS": "k", "PAGE_SIZE": 0},
		"no signing keys":  {"SIGNING_KEYS": " , "},
		"amqp without url": {"SIGNING_KEYS": "k", "PUBSUB_DRIVER": "amqp"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(newViper(t, values))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHANNEL_TEST_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CHANNEL_TEST_KEY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("CHANNEL_TEST_KEY"))
}
