package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(3000), cfg.HTTP.Port)
	assert.Equal(t, DatabaseDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultCoversDir, cfg.Covers.Dir)
	assert.Equal(t, int64(DefaultCoverMaxBytes), cfg.Covers.MaxBytes)
	assert.True(t, cfg.Tasks.Enabled)
	assert.False(t, cfg.CoverSweep.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.CoverSweep.Schedule)
	assert.True(t, cfg.Security.CSRFEnabled)
	assert.Equal(t, 24*time.Hour, cfg.Security.SessionLifetime)
	assert.Zero(t, cfg.Security.RateLimitRPS)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost dbname=books")
	t.Setenv("COVERS_MAX_BYTES", "1024")
	t.Setenv("TASKS_ENABLED", "false")
	t.Setenv("SESSION_LIFETIME", "2h")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("READ_ONLY", "true")

	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DatabaseDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost dbname=books", cfg.Database.DSN)
	assert.Equal(t, int64(1024), cfg.Covers.MaxBytes)
	assert.False(t, cfg.Tasks.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Security.SessionLifetime)
	assert.Equal(t, 2.5, cfg.Security.RateLimitRPS)
	assert.True(t, cfg.Security.ReadOnly)
}
