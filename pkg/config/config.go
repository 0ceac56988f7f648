package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kasuganosora/dbmagic/pkg/magic"
)

// Config is the service configuration loaded from JSON.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// PoolConfig configures one mode's connection pool.
type PoolConfig struct {
	MaxOpen     int           `json:"max_open"`
	MaxIdle     int           `json:"max_idle"`
	Lifetime    time.Duration `json:"lifetime"`
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// DatabaseConfig configures the session factory. At least one DSN must be
// set.
type DatabaseConfig struct {
	SyncDSN        string     `json:"sync_dsn"`
	AsyncDSN       string     `json:"async_dsn"`
	SyncDriver     string     `json:"sync_driver"`
	AsyncDriver    string     `json:"async_driver"`
	SyncPool       PoolConfig `json:"sync_pool"`
	AsyncPool      PoolConfig `json:"async_pool"`
	ReadOnlyScopes bool       `json:"read_only_scopes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level"` // error, warn, info or debug
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			SyncDSN:  "file:dbmagic.db",
			AsyncDSN: "file:dbmagic.db",
			SyncPool: PoolConfig{
				MaxOpen:     10,
				MaxIdle:     5,
				Lifetime:    30 * time.Minute,
				IdleTimeout: 5 * time.Minute,
			},
			AsyncPool: PoolConfig{
				MaxOpen:     10,
				MaxIdle:     5,
				Lifetime:    30 * time.Minute,
				IdleTimeout: 5 * time.Minute,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a JSON file, applying it on top of the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault tries the DBMAGIC_CONFIG environment variable, then a
// set of well-known paths, and falls back to the defaults.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("DBMAGIC_CONFIG"); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/dbmagic/config.json",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	return DefaultConfig()
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Server.Port)
	}

	if config.Database.SyncDSN == "" && config.Database.AsyncDSN == "" {
		return fmt.Errorf("at least one of database.sync_dsn and database.async_dsn must be set")
	}

	for _, pool := range []PoolConfig{config.Database.SyncPool, config.Database.AsyncPool} {
		if pool.MaxOpen < 0 || pool.MaxIdle < 0 {
			return fmt.Errorf("pool sizes cannot be negative")
		}
	}

	if _, err := ParseLogLevel(config.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a config string to a magic.LogLevel.
func ParseLogLevel(level string) (magic.LogLevel, error) {
	switch level {
	case "", "info":
		return magic.LogInfo, nil
	case "error":
		return magic.LogError, nil
	case "warn":
		return magic.LogWarn, nil
	case "debug":
		return magic.LogDebug, nil
	default:
		return magic.LogInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// GetListenAddress returns the host:port pair the server listens on.
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MagicOptions converts the database section into factory options.
func (c *Config) MagicOptions(logger magic.Logger) *magic.Options {
	db := c.Database
	return &magic.Options{
		SyncDSN:  db.SyncDSN,
		AsyncDSN: db.AsyncDSN,
		SyncEngine: magic.EngineOptions{
			Driver:          db.SyncDriver,
			MaxOpenConns:    db.SyncPool.MaxOpen,
			MaxIdleConns:    db.SyncPool.MaxIdle,
			ConnMaxLifetime: db.SyncPool.Lifetime,
			ConnMaxIdleTime: db.SyncPool.IdleTimeout,
		},
		AsyncEngine: magic.EngineOptions{
			Driver:          db.AsyncDriver,
			MaxOpenConns:    db.AsyncPool.MaxOpen,
			MaxIdleConns:    db.AsyncPool.MaxIdle,
			ConnMaxLifetime: db.AsyncPool.Lifetime,
			ConnMaxIdleTime: db.AsyncPool.IdleTimeout,
		},
		SyncSession:  magic.SessionOptions{ReadOnly: db.ReadOnlyScopes},
		AsyncSession: magic.SessionOptions{ReadOnly: db.ReadOnlyScopes},
		Logger:       logger,
	}
}
