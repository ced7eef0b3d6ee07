package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// StartupMode defines how the service handles initialization failures
type StartupMode string

const (
	// StartupModeStrict fails fast on any initialization error (default)
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful starts with degraded functionality, logging warnings
	StartupModeGraceful StartupMode = "graceful"
)

// DataPaths holds all data directory and file path configuration
// These paths can be overridden via environment variables
type DataPaths struct {
	// DataDir is the base data directory (ORGDIR_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (ORGDIR_SQLITE_PATH, default: ${DataDir}/orgdir.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config holds all configuration for the directory service
type Config struct {
	// StartupMode controls how initialization failures are handled
	// "strict" (default): Fail fast on any error
	// "graceful": Start with degraded functionality, log warnings
	StartupMode StartupMode `mapstructure:"startup_mode"`

	// DataPaths holds all data directory configuration
	DataPaths DataPaths `mapstructure:"data_paths"`

	Database struct {
		// Driver selects the backend: "sqlite" or "postgres"
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"ssl_mode"`
	} `mapstructure:"database"`

	API struct {
		Host      string `mapstructure:"host"`
		Port      int    `mapstructure:"port"`
		Key       string `mapstructure:"key"`
		KeyHeader string `mapstructure:"key_header"`
		RateLimit struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Cache struct {
		// ActivitySubtreeSize bounds the in-process activity subtree cache
		ActivitySubtreeSize int `mapstructure:"activity_subtree_size"`
		Redis               struct {
			Enabled  bool          `mapstructure:"enabled"`
			Addr     string        `mapstructure:"addr"`
			Password string        `mapstructure:"password"`
			DB       int           `mapstructure:"db"`
			TTL      time.Duration `mapstructure:"ttl"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Seed struct {
		// File optionally points to a YAML dataset replacing the built-in one
		File string `mapstructure:"file"`
	} `mapstructure:"seed"`

	Pagination struct {
		DefaultLimit int `mapstructure:"default_limit"`
		MaxLimit     int `mapstructure:"max_limit"`
	} `mapstructure:"pagination"`
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("startup_mode", string(StartupModeStrict))

	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.host", "127.0.0.1")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "orgdir")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "orgdir")
	viper.SetDefault("database.ssl_mode", "disable")

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.key", "")
	viper.SetDefault("api.key_header", "X-API-Key")
	viper.SetDefault("api.rate_limit.requests_per_second", 100)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("cache.activity_subtree_size", 1024)
	viper.SetDefault("cache.redis.enabled", false)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.ttl", 5*time.Minute)

	viper.SetDefault("seed.file", "")

	viper.SetDefault("pagination.default_limit", 100)
	viper.SetDefault("pagination.max_limit", 1000)
}

// loadFromEnv sets up environment variable loading.
// The unprefixed DATABASE_* and API_KEY names are kept as aliases for
// deployments that predate the ORGDIR_ prefix.
func loadFromEnv() {
	viper.SetEnvPrefix("ORGDIR")
	viper.AutomaticEnv()

	_ = viper.BindEnv("startup_mode", "ORGDIR_STARTUP_MODE")
	_ = viper.BindEnv("data_paths.data_dir", "ORGDIR_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", "ORGDIR_SQLITE_PATH")
	_ = viper.BindEnv("database.driver", "ORGDIR_DATABASE_DRIVER", "DATABASE_DRIVER")
	_ = viper.BindEnv("database.host", "ORGDIR_DATABASE_HOST", "DATABASE_HOST")
	_ = viper.BindEnv("database.port", "ORGDIR_DATABASE_PORT", "DATABASE_PORT")
	_ = viper.BindEnv("database.user", "ORGDIR_DATABASE_USER", "DATABASE_USER")
	_ = viper.BindEnv("database.password", "ORGDIR_DATABASE_PASSWORD", "DATABASE_PASSWORD")
	_ = viper.BindEnv("database.name", "ORGDIR_DATABASE_NAME", "DATABASE_NAME")
	_ = viper.BindEnv("api.key", "ORGDIR_API_KEY", "API_KEY")
	_ = viper.BindEnv("api.key_header", "ORGDIR_API_KEY_NAME", "API_KEY_NAME")
	_ = viper.BindEnv("seed.file", "ORGDIR_SEED_FILE")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config.ResolveDataPaths()

	return &config, nil
}

// ResolveDataPaths resolves all data paths, deriving from DataDir if not explicitly set
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "orgdir.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the resolved SQLite database path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "orgdir.db")
	}
	return c.DataPaths.SQLitePath
}

// DatabaseDSN returns the driver-specific connection string
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "postgres" {
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User, c.Database.Password,
			c.Database.Host, c.Database.Port,
			c.Database.Name, c.Database.SSLMode,
		)
	}
	return c.GetSQLitePath()
}

// IsGracefulMode returns true if the startup mode is graceful
func (c *Config) IsGracefulMode() bool {
	return c.StartupMode == StartupModeGraceful
}

// validateConfig validates the configuration for security and correctness
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database driver: %q (must be sqlite or postgres)", config.Database.Driver)
	}

	if config.Database.Driver == "postgres" {
		if config.Database.Host == "" {
			return fmt.Errorf("database host cannot be empty for postgres")
		}
		if config.Database.Port < 1 || config.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d (must be 1-65535)", config.Database.Port)
		}
		if config.Database.Name == "" {
			return fmt.Errorf("database name cannot be empty for postgres")
		}
	}

	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d (must be 1-65535)", config.API.Port)
	}
	if config.API.Key != "" && config.API.KeyHeader == "" {
		return fmt.Errorf("api key header cannot be empty when an API key is set")
	}

	if config.API.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("api rate limit requests_per_second must be positive")
	}
	if config.API.RateLimit.Burst < 1 {
		return fmt.Errorf("api rate limit burst must be positive")
	}

	if config.Cache.ActivitySubtreeSize < 1 {
		return fmt.Errorf("cache activity_subtree_size must be positive")
	}

	if config.Pagination.DefaultLimit < 1 {
		return fmt.Errorf("pagination default_limit must be positive")
	}
	if config.Pagination.MaxLimit < config.Pagination.DefaultLimit {
		return fmt.Errorf("pagination max_limit must be at least default_limit")
	}

	return nil
}
