package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Heartbeat.RateLimit)
	require.Equal(t, time.Minute, cfg.Heartbeat.RateWindow)
	require.Equal(t, 60, cfg.Heartbeat.DefaultTimeoutMinutes)
	require.Equal(t, 4380*time.Hour, cfg.License.RequestLogRetention)
	require.Equal(t, "redis", cfg.RateLimiter.Backend)
	require.Equal(t, float64(10), cfg.GeoIP.RateLimit)
	require.ErrorIs(t, cfg.Validate(), ErrMissingHMACSecret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LICENSE_HMAC_SECRET", "s3cret")
	t.Setenv("HEARTBEAT_RATE_LIMIT", "10")
	t.Setenv("HEARTBEAT_STRICT_SEATS", "true")
	t.Setenv("GEOIP_PROVIDER", "none")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	require.Equal(t, "s3cret", cfg.License.HMACSecret)
	require.Equal(t, 10, cfg.Heartbeat.RateLimit)
	require.True(t, cfg.Heartbeat.StrictSeats)
	require.Equal(t, "none", cfg.GeoIP.Provider)
	require.NoError(t, cfg.Validate())
}
