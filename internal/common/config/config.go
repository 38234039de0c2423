// Package config provides configuration management for bothive.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for bothive.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds the optional PostgreSQL connection configuration.
// When Host is empty the user store falls back to SQLite under the data dir.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// NATSConfig holds NATS messaging configuration.
// An empty URL selects the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// StorageConfig holds the on-disk layout for per-user data.
type StorageConfig struct {
	// DataDir is the base directory holding files/<userID>/ workspaces,
	// logs/<userID>.log console logs, and the SQLite database.
	DataDir string `mapstructure:"dataDir"`
}

// SupervisorConfig holds bot process supervision settings.
type SupervisorConfig struct {
	// Runtime is the interpreter used to execute the user's entry point.
	Runtime string `mapstructure:"runtime"`
	// InstallCommand installs dependencies from the manifest file.
	InstallCommand string `mapstructure:"installCommand"`
	// ManifestFile is the well-known dependency manifest filename looked
	// for in the user's workspace.
	ManifestFile string `mapstructure:"manifestFile"`
	// StopGracePeriod is how long Stop waits after SIGTERM before SIGKILL,
	// in seconds.
	StopGracePeriod int `mapstructure:"stopGracePeriod"`
	// RestartSettleDelay is the pause between a confirmed stop and the
	// subsequent start during a restart, in seconds.
	RestartSettleDelay int `mapstructure:"restartSettleDelay"`
	// DefaultEntryFile is used for users who have not configured one.
	DefaultEntryFile string `mapstructure:"defaultEntryFile"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// StopGracePeriodDuration returns the graceful-stop grace period as a time.Duration.
func (s *SupervisorConfig) StopGracePeriodDuration() time.Duration {
	return time.Duration(s.StopGracePeriod) * time.Second
}

// RestartSettleDelayDuration returns the restart settle delay as a time.Duration.
func (s *SupervisorConfig) RestartSettleDelayDuration() time.Duration {
	return time.Duration(s.RestartSettleDelay) * time.Second
}

// FilesDir returns the directory holding per-user workspaces.
func (s *StorageConfig) FilesDir() string {
	return filepath.Join(s.DataDir, "files")
}

// LogsDir returns the directory holding per-user console logs.
func (s *StorageConfig) LogsDir() string {
	return filepath.Join(s.DataDir, "logs")
}

// SQLitePath returns the path of the fallback SQLite database file.
func (s *StorageConfig) SQLitePath() string {
	return filepath.Join(s.DataDir, "app.db")
}

// detectDefaultLogFormat returns the appropriate log format based on environment.
// Returns "json" if running in Kubernetes or other production environments.
// Returns "text" for terminal/development use (human-readable console format).
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}

	if env := os.Getenv("BOTHIVE_ENV"); env == "production" || env == "prod" {
		return "json"
	}

	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database defaults - empty host means use SQLite under the data dir
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bothive")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "bothive")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "bothive")
	v.SetDefault("nats.maxReconnects", 10)

	// Storage defaults
	v.SetDefault("storage.dataDir", "./user_data")

	// Supervisor defaults
	v.SetDefault("supervisor.runtime", "python3")
	v.SetDefault("supervisor.installCommand", "pip install -r")
	v.SetDefault("supervisor.manifestFile", "requirements.txt")
	v.SetDefault("supervisor.stopGracePeriod", 5)
	v.SetDefault("supervisor.restartSettleDelay", 1)
	v.SetDefault("supervisor.defaultEntryFile", "app.py")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix BOTHIVE_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory or /etc/bothive/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BOTHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bothive/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Database validation - only if host is set (optional, SQLite otherwise)
	if cfg.Database.Host != "" {
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "database.user is required when database.host is set")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required when database.host is set")
		}
	}

	if cfg.Storage.DataDir == "" {
		errs = append(errs, "storage.dataDir is required")
	}

	if cfg.Supervisor.Runtime == "" {
		errs = append(errs, "supervisor.runtime is required")
	}
	if cfg.Supervisor.StopGracePeriod <= 0 {
		errs = append(errs, "supervisor.stopGracePeriod must be positive")
	}
	if cfg.Supervisor.RestartSettleDelay < 0 {
		errs = append(errs, "supervisor.restartSettleDelay must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
