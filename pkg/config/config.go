package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EnvironmentProduction = "production"
)

// AppConfig holds all application configuration, grouped by concern.
type AppConfig struct {
	Environment string          `mapstructure:"environment" validate:"required,oneof=development test production"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	EnforceHTTPS       bool          `mapstructure:"enforce_https"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins" validate:"required,min=1"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Path            string        `mapstructure:"path" validate:"required_if=Driver sqlite"`
	URL             string        `mapstructure:"url" validate:"required_if=Driver postgres"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	SQLLevel string `mapstructure:"sql_level" validate:"required,oneof=trace debug info error"`
	LokiURL  string `mapstructure:"loki_url" validate:"omitempty,url"`
}

type TelemetryConfig struct {
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	ServiceVersion string `mapstructure:"service_version" validate:"required"`
	MetricsPort    int    `mapstructure:"metrics_port" validate:"gte=0,lt=65536"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
}

// RateLimitConfig applies Requests per Window to reads and WriteRequests per
// Window to create, update and delete, keyed by client IP.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Requests      int           `mapstructure:"requests" validate:"gte=1"`
	WriteRequests int           `mapstructure:"write_requests" validate:"gte=1"`
	Window        time.Duration `mapstructure:"window" validate:"gt=0"`
}

// GetDefaultConfig returns the configuration used when nothing overrides it.
func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		Environment: "development",
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			EnforceHTTPS:       false,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			Path:            "tasks.db",
			AutoMigrate:     true,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:    "info",
			SQLLevel: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "taskboard",
			ServiceVersion: "1.0.0",
			MetricsPort:    9091,
		},
		RateLimit: RateLimitConfig{
			Enabled:       false,
			Requests:      100,
			WriteRequests: 20,
			Window:        time.Minute,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("environment", d.Environment)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.enforce_https", d.Server.EnforceHTTPS)
	v.SetDefault("server.cors_allowed_origins", d.Server.CORSAllowedOrigins)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.sql_level", d.Logging.SQLLevel)
	v.SetDefault("logging.loki_url", "")

	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.service_version", d.Telemetry.ServiceVersion)
	v.SetDefault("telemetry.metrics_port", d.Telemetry.MetricsPort)
	v.SetDefault("telemetry.otlp_endpoint", "")

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests", d.RateLimit.Requests)
	v.SetDefault("rate_limit.write_requests", d.RateLimit.WriteRequests)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)
}

// Load reads defaults, then an optional config.yaml (or the file named by
// TASKBOARD_CONFIG), then TASKBOARD_* environment variables. PORT,
// DATABASE_PATH and DATABASE_URL are honoured as well.
func Load() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are bound explicitly so Unmarshal sees them and
	// IsSet can tell an explicit value from an inferred one.
	bindings := [][]string{
		{"server.port", "TASKBOARD_SERVER_PORT", "PORT"},
		{"database.path", "TASKBOARD_DATABASE_PATH", "DATABASE_PATH"},
		{"database.url", "TASKBOARD_DATABASE_URL", "DATABASE_URL"},
		{"database.driver", "TASKBOARD_DATABASE_DRIVER"},
		{"database.auto_migrate", "TASKBOARD_DATABASE_AUTO_MIGRATE"},
	}

	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", b[0], err)
		}
	}

	explicitFile := os.Getenv("TASKBOARD_CONFIG")

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if explicitFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &AppConfig{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !v.IsSet("database.driver") {
		cfg.Database.Driver = DriverSQLite

		if cfg.Database.URL != "" {
			cfg.Database.Driver = DriverPostgres
		}
	}

	if !v.IsSet("database.auto_migrate") {
		cfg.Database.AutoMigrate = cfg.Environment != EnvironmentProduction
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}
