package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, LockLocal, cfg.Lock.Driver)
	assert.Equal(t, 50, cfg.Booking.DefaultDurationMinutes)
	assert.Equal(t, "America/Sao_Paulo", cfg.Booking.DefaultTimezone)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("LOCK_TTL", "20s")
	t.Setenv("BOOKING_DEFAULT_DURATION", "60")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, LockRedis, cfg.Lock.Driver)
	assert.Equal(t, 20*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 60, cfg.Booking.DefaultDurationMinutes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadRejectsRedisLockShorterThanRequest(t *testing.T) {
	cases := []struct {
		name    string
		ttl     string
		timeout string
	}{
		{"ttl below wait plus timeout", "12s", "10s"},
		{"ttl equal to wait plus timeout", "15s", "10s"},
		{"no request timeout", "30s", "0s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("LOCK_DRIVER", "redis")
			t.Setenv("LOCK_WAIT", "5s")
			t.Setenv("LOCK_TTL", tc.ttl)
			t.Setenv("REQUEST_TIMEOUT", tc.timeout)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadLocalLockIgnoresTTL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("LOCK_TTL", "1s")
	t.Setenv("REQUEST_TIMEOUT", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
}
