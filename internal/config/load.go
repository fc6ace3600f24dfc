package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so server.port
// is read from VERBDRILL_SERVER_PORT.
const EnvPrefix = "VERBDRILL"

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"port":         "server.port",
	"log-level":    "server.log_level",
	"store-driver": "store.driver",
	"store-dsn":    "store.dsn",
	"sqlite-path":  "store.sqlite_path",
	"catalog":      "catalog.path",
}

// RegisterFlags adds the supported command-line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default ./config.yaml if present)")
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("store-driver", "memory", "record store: memory, sqlite, postgres, redis")
	fs.String("store-dsn", "", "postgres URL or redis address")
	fs.String("sqlite-path", "", "sqlite database file")
	fs.String("catalog", "", "catalog file (.yaml or .xlsx); empty uses the built-in catalog")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("store.key_prefix", "verbdrill")
	v.SetDefault("store.max_conns", 10)

	v.SetDefault("srs.mastery_min_correct", 5)
	v.SetDefault("srs.mastery_min_interval_days", 7)
	v.SetDefault("srs.known_interval_days", 30)
	v.SetDefault("srs.max_interval_days", 0)
	v.SetDefault("srs.fuzz_enabled", false)

	v.SetDefault("session.default_size", 20)
	v.SetDefault("session.max_size", 100)

	v.SetDefault("catalog.path", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.interval", time.Hour)
	v.SetDefault("reminder.namespaces", []string{})
}

// Load configuration from defaults, an optional config file, a .env file,
// environment variables and command-line flags, in increasing order of
// precedence. flags may be nil.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// A missing .env file is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
