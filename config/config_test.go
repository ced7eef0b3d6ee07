package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromDefaults(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	setDefaults()
	loadFromEnv()

	var cfg Config
	require.NoError(t, viper.Unmarshal(&cfg))
	require.NoError(t, validateConfig(&cfg))
	cfg.ResolveDataPaths()
	return &cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := loadFromDefaults(t)

	assert.Equal(t, StartupModeStrict, cfg.StartupMode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "X-API-Key", cfg.API.KeyHeader)
	assert.Equal(t, 100, cfg.Pagination.DefaultLimit)
	assert.Equal(t, "data/orgdir.db", cfg.GetSQLitePath())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ORGDIR_DATABASE_DRIVER", "postgres")
	t.Setenv("ORGDIR_DATABASE_HOST", "db.internal")
	t.Setenv("ORGDIR_DATABASE_PORT", "5433")
	t.Setenv("ORGDIR_DATABASE_NAME", "directory")
	t.Setenv("ORGDIR_API_KEY", "secret-key")

	cfg := loadFromDefaults(t)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "secret-key", cfg.API.Key)
	assert.Contains(t, cfg.DatabaseDSN(), "db.internal:5433/directory")
}

func TestLegacyEnvAliases(t *testing.T) {
	t.Setenv("DATABASE_HOST", "legacy-host")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("API_KEY_NAME", "X-API-KEY")

	cfg := loadFromDefaults(t)

	assert.Equal(t, "legacy-host", cfg.Database.Host)
	assert.Equal(t, "legacy-key", cfg.API.Key)
	assert.Equal(t, "X-API-KEY", cfg.API.KeyHeader)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cfg := loadFromDefaults(t)

	bad := *cfg
	bad.Database.Driver = "oracle"
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.API.Port = 0
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.API.Key = "k"
	bad.API.KeyHeader = ""
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Pagination.MaxLimit = 1
	assert.Error(t, validateConfig(&bad))
}

func TestPostgresRequiresHostAndName(t *testing.T) {
	cfg := loadFromDefaults(t)
	cfg.Database.Driver = "postgres"
	cfg.Database.Host = ""
	assert.Error(t, validateConfig(cfg))

	cfg = loadFromDefaults(t)
	cfg.Database.Driver = "postgres"
	cfg.Database.Name = ""
	assert.Error(t, validateConfig(cfg))
}
