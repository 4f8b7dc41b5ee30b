package config

import (
	"net/url"
	"strings"
	"time"

	"vizninja/internal/errors"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Store     StoreConfig
	Upload    UploadConfig
	Health    HealthConfig
	Database  DatabaseConfig
	Analysis  AnalysisConfig
	Dashboard DashboardConfig
	LogLevel  string
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Backend modes
const (
	BackendHTTP = "http"
	BackendFake = "fake"
)

// BackendConfig selects the dashboard's data backend
type BackendConfig struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

// Store drivers
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// StoreConfig selects where the dashboard session is persisted
type StoreConfig struct {
	Driver string
	Path   string
}

// UploadConfig holds upload limits and storage
type UploadConfig struct {
	AdvisoryMaxBytes int64
	ServerMaxBytes   int64
	Dir              string
}

// HealthConfig holds connectivity polling settings
type HealthConfig struct {
	PollInterval time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// AnalysisConfig holds backend analysis settings
type AnalysisConfig struct {
	SessionTTL   time.Duration
	TestSize     float64
	Seed         int64
	SampleRows   int
	PreviewRows  int
	MaxPairplot  int
	ChartWorkers int
}

// DashboardConfig holds the HTML dashboard settings
type DashboardConfig struct {
	Port string
}

const megabyte = 1024 * 1024

// SetDefaults registers the default value of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BACKEND_MODE", BackendHTTP)
	v.SetDefault("BACKEND_URL", "http://localhost:8080")
	v.SetDefault("BACKEND_TIMEOUT", "60s")
	v.SetDefault("STORE_DRIVER", StoreBadger)
	v.SetDefault("STORE_PATH", ".vizninja/session")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 50)
	v.SetDefault("UPLOAD_DIR", "uploads/datasets")
	v.SetDefault("HEALTH_POLL_INTERVAL", "30s")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("REGRESSION_TEST_SIZE", 0.2)
	v.SetDefault("REGRESSION_SEED", 42)
	v.SetDefault("SAMPLE_ROWS", 5)
	v.SetDefault("PREVIEW_ROWS", 5)
	v.SetDefault("PAIRPLOT_MAX_COLUMNS", 10)
	v.SetDefault("CHART_WORKERS", 4)
	v.SetDefault("DASHBOARD_PORT", "3000")
	v.SetDefault("LOG_LEVEL", "INFO")
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which may carry bound CLI flags
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	config := &Config{
		Server: ServerConfig{
			Port:    v.GetString("PORT"),
			GinMode: v.GetString("GIN_MODE"),
		},
		Backend: BackendConfig{
			Mode:    strings.ToLower(v.GetString("BACKEND_MODE")),
			URL:     strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			Timeout: v.GetDuration("BACKEND_TIMEOUT"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
			Path:   v.GetString("STORE_PATH"),
		},
		Upload: UploadConfig{
			AdvisoryMaxBytes: v.GetInt64("MAX_UPLOAD_MB") * megabyte,
			ServerMaxBytes:   v.GetInt64("SERVER_MAX_UPLOAD_MB") * megabyte,
			Dir:              v.GetString("UPLOAD_DIR"),
		},
		Health: HealthConfig{
			PollInterval: v.GetDuration("HEALTH_POLL_INTERVAL"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Analysis: AnalysisConfig{
			SessionTTL:   v.GetDuration("SESSION_TTL"),
			TestSize:     v.GetFloat64("REGRESSION_TEST_SIZE"),
			Seed:         v.GetInt64("REGRESSION_SEED"),
			SampleRows:   v.GetInt("SAMPLE_ROWS"),
			PreviewRows:  v.GetInt("PREVIEW_ROWS"),
			MaxPairplot:  v.GetInt("PAIRPLOT_MAX_COLUMNS"),
			ChartWorkers: v.GetInt("CHART_WORKERS"),
		},
		Dashboard: DashboardConfig{
			Port: v.GetString("DASHBOARD_PORT"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	switch config.Backend.Mode {
	case BackendHTTP:
		u, err := url.Parse(config.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigInvalid("BACKEND_URL must be an absolute URL in http mode")
		}
	case BackendFake:
	default:
		return errors.ConfigInvalid("BACKEND_MODE must be http or fake")
	}

	switch config.Store.Driver {
	case StoreMemory:
	case StoreBadger:
		if config.Store.Path == "" {
			return errors.ConfigInvalid("STORE_PATH is required for the badger store")
		}
	case StorePostgres:
		if config.Database.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres store")
		}
	default:
		return errors.ConfigInvalid("STORE_DRIVER must be memory, badger or postgres")
	}

	if config.Health.PollInterval <= 0 {
		return errors.ConfigInvalid("HEALTH_POLL_INTERVAL must be positive")
	}
	if config.Backend.Timeout <= 0 {
		return errors.ConfigInvalid("BACKEND_TIMEOUT must be positive")
	}
	if config.Analysis.TestSize <= 0 || config.Analysis.TestSize >= 1 {
		return errors.ConfigInvalid("REGRESSION_TEST_SIZE must be between 0 and 1")
	}
	if config.Upload.ServerMaxBytes <= 0 {
		return errors.ConfigInvalid("SERVER_MAX_UPLOAD_MB must be positive")
	}
	if config.Analysis.SampleRows <= 0 || config.Analysis.PreviewRows <= 0 {
		return errors.ConfigInvalid("SAMPLE_ROWS and PREVIEW_ROWS must be positive")
	}
	if config.Analysis.ChartWorkers <= 0 {
		config.Analysis.ChartWorkers = 1
	}
	return nil
}
