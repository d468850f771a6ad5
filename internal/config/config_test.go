package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ocean.db", cfg.Store.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 500, cfg.Ingest.BatchSize)
	assert.Empty(t, cfg.Ingest.Schedule)
	assert.Equal(t, "uploads", cfg.Ingest.UploadDir)
	assert.Equal(t, int64(16), cfg.Ingest.MaxUploadMB)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.Weather.BaseURL)
	assert.InDelta(t, 39.9042, cfg.Weather.Latitude, 1e-9)
	assert.InDelta(t, 116.4074, cfg.Weather.Longitude, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, "@every 10m", cfg.Weather.Refresh)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 30, cfg.Analysis.ClusterLookbackDays)
	assert.Equal(t, int64(42), cfg.Analysis.ClusterSeed)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RANCH_SERVER_ADDR", ":9090")
	t.Setenv("RANCH_STORE_DRIVER", "postgres")
	t.Setenv("RANCH_STORE_DSN", "host=db user=ranch dbname=ranch")
	t.Setenv("RANCH_LOG_LEVEL", "debug")
	t.Setenv("RANCH_INGEST_BATCH_SIZE", "50")
	t.Setenv("RANCH_INGEST_SCHEDULE", "@daily")
	t.Setenv("RANCH_WEATHER_TIMEOUT", "2s")
	t.Setenv("RANCH_AUTH_SESSION_TTL", "1h")
	t.Setenv("RANCH_ANALYSIS_CLUSTER_SEED", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "host=db user=ranch dbname=ranch", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Ingest.BatchSize)
	assert.Equal(t, "@daily", cfg.Ingest.Schedule)
	assert.Equal(t, 2*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, int64(7), cfg.Analysis.ClusterSeed)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranch.yaml")
	content := "store:\n  dsn: file.db\ningest:\n  root: /data/water\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.Store.DSN)
	assert.Equal(t, "/data/water", cfg.Ingest.Root)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "RANCH_STORE_DRIVER", "mysql"},
		{"zero batch size", "RANCH_INGEST_BATCH_SIZE", "0"},
		{"negative timeout", "RANCH_WEATHER_TIMEOUT", "-1s"},
		{"zero lookback", "RANCH_ANALYSIS_CLUSTER_LOOKBACK_DAYS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "file", "a.csv")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "file=a.csv")
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
}
