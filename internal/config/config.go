package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"      validate:"required"`
	Session  SessionConfig  `mapstructure:"session"  validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Reminder ReminderConfig `mapstructure:"reminder"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"required,oneof=json text"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres redis"`
	// DSN is the postgres connection URL or the redis address.
	DSN        string `mapstructure:"dsn"         validate:"required_if=Driver postgres,required_if=Driver redis"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	MaxConns   int    `mapstructure:"max_conns"   validate:"gte=0"`
}

// SRSConfig tunes the scheduler.
type SRSConfig struct {
	MasteryMinCorrect      int  `mapstructure:"mastery_min_correct"       validate:"gte=1"`
	MasteryMinIntervalDays int  `mapstructure:"mastery_min_interval_days" validate:"gte=1"`
	KnownIntervalDays      int  `mapstructure:"known_interval_days"       validate:"gte=1"`
	MaxIntervalDays        int  `mapstructure:"max_interval_days"         validate:"gte=0"`
	FuzzEnabled            bool `mapstructure:"fuzz_enabled"`
}

// SessionConfig bounds learning session sizes.
type SessionConfig struct {
	DefaultSize int `mapstructure:"default_size" validate:"gte=1"`
	MaxSize     int `mapstructure:"max_size"     validate:"gtefield=DefaultSize"`
}

// CatalogConfig points at the item catalog. An empty path selects the
// built-in catalog; .yaml/.yml and .xlsx files are supported.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig contains identity settings. Without a JWT secret every request
// is served from the anonymous namespace.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// ReminderConfig drives the periodic due-review check.
type ReminderConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"   validate:"required_if=Enabled true"`
	Namespaces []string      `mapstructure:"namespaces"`
}
