package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Empty(t, cfg.PermissionsPath)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(25), cfg.Database.MaxConnections)

	assert.Equal(t, time.Duration(0), cfg.Scheduler.Interval)
	assert.False(t, cfg.Scheduler.GenerateAMOrders)
	assert.Equal(t, "assets/attachments", cfg.Storage.AttachmentsDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPASSWORD", "s3cret")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("SCHEDULER_GENERATE_AM_ORDERS", "true")

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.GenerateAMOrders)
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{
		Host:     "localhost",
		Port:     5433,
		User:     "masapp",
		Password: "pw",
		Database: "maintenance_engine",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"postgres://masapp:pw@localhost:5433/maintenance_engine?sslmode=disable",
		c.ConnectionString())
}
