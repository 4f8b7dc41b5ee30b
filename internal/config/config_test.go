package config

import (
	"testing"
	"time"

	"vizninja/internal/errors"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, BackendHTTP, cfg.Backend.Mode)
	assert.Equal(t, StoreBadger, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Health.PollInterval)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.AdvisoryMaxBytes)
	assert.Equal(t, int64(50*1024*1024), cfg.Upload.ServerMaxBytes)
	assert.InDelta(t, 0.2, cfg.Analysis.TestSize, 1e-9)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BACKEND_MODE", "FAKE")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HEALTH_POLL_INTERVAL", "5s")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, BackendFake, cfg.Backend.Mode)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Health.PollInterval)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend mode", map[string]string{"BACKEND_MODE": "grpc"}},
		{"relative backend url", map[string]string{"BACKEND_URL": "localhost"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown store", map[string]string{"STORE_DRIVER": "redis"}},
		{"zero poll interval", map[string]string{"HEALTH_POLL_INTERVAL": "0s"}},
		{"test size out of range", map[string]string{"REGRESSION_TEST_SIZE": "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(viper.New())
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
