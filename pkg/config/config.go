package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/masapp-io/maintenance-engine/pkg/database"
)

// Config holds all configuration for the maintenance engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, task-generation notifications)
	Redis database.RedisConfig `yaml:"redis"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Storage configuration (attachment files)
	Storage StorageConfig `yaml:"storage"`

	// MigrationsPath is the directory containing SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// PermissionsPath optionally points to a YAML file overriding the
	// built-in role permission matrix.
	PermissionsPath string `yaml:"permissions_path" env:"PERMISSIONS_PATH" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"masapp"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"maintenance_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// SchedulerConfig controls automatic task generation.
type SchedulerConfig struct {
	// Interval between background generation runs. Zero disables the
	// background loop; generation is then on-demand only.
	Interval time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"0"`

	// GenerateAMOrders controls whether due AM plans materialize work
	// orders. The originating deployment keeps this off: operators have
	// no terminal, so AM plans only advance their schedule.
	GenerateAMOrders bool `yaml:"generate_am_orders" env:"SCHEDULER_GENERATE_AM_ORDERS" env-default:"false"`
}

// StorageConfig holds attachment file storage settings.
type StorageConfig struct {
	AttachmentsDir string `yaml:"attachments_dir" env:"ATTACHMENTS_DIR" env-default:"assets/attachments"`
}

// Load reads configuration from config.yaml with environment overrides.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
