package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Weather  WeatherConfig  `yaml:"weather" mapstructure:"weather"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// IngestConfig configures water-quality file ingestion.
type IngestConfig struct {
	Root        string `yaml:"root" mapstructure:"root"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Schedule    string `yaml:"schedule" mapstructure:"schedule"`
	UploadDir   string `yaml:"upload_dir" mapstructure:"upload_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// WeatherConfig configures the Open-Meteo client.
type WeatherConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Latitude  float64       `yaml:"latitude" mapstructure:"latitude"`
	Longitude float64       `yaml:"longitude" mapstructure:"longitude"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Refresh   string        `yaml:"refresh" mapstructure:"refresh"`
}

// AuthConfig configures login sessions.
type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
}

// AnalysisConfig configures the clustering analysis.
type AnalysisConfig struct {
	ClusterLookbackDays int   `yaml:"cluster_lookback_days" mapstructure:"cluster_lookback_days"`
	ClusterSeed         int64 `yaml:"cluster_seed" mapstructure:"cluster_seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "ocean.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ingest.root", "")
	v.SetDefault("ingest.batch_size", 500)
	v.SetDefault("ingest.schedule", "")
	v.SetDefault("ingest.upload_dir", "uploads")
	v.SetDefault("ingest.max_upload_mb", 16)

	v.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("weather.latitude", 39.9042)
	v.SetDefault("weather.longitude", 116.4074)
	v.SetDefault("weather.timeout", 5*time.Second)
	v.SetDefault("weather.refresh", "@every 10m")

	v.SetDefault("auth.session_ttl", 24*time.Hour)

	v.SetDefault("analysis.cluster_lookback_days", 30)
	v.SetDefault("analysis.cluster_seed", 42)
}

// Load reads configuration from an optional file and RANCH_* environment
// variables, applying defaults where unset.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ranch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, p := range paths {
		if p == "" {
			continue
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store dsn is required")
	}
	if c.Ingest.BatchSize <= 0 {
		return errors.New("ingest batch_size must be positive")
	}
	if c.Ingest.MaxUploadMB <= 0 {
		return errors.New("ingest max_upload_mb must be positive")
	}
	if c.Weather.Timeout <= 0 {
		return errors.New("weather timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown_timeout must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth session_ttl must be positive")
	}
	if c.Analysis.ClusterLookbackDays <= 0 {
		return errors.New("analysis cluster_lookback_days must be positive")
	}
	return nil
}
