package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ryandielhenn/bytelru/internal/logging"
)

const (
	EnvPrefix = "BYTELRU"

	KeyCapacity  = "store.capacity"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	// 64MB, same default a node used to start with.
	DefaultCapacity = 64 << 20
)

type Config struct {
	Capacity int
	Log      logging.Config
}

// New returns a viper instance with defaults and environment lookup set
// up. Values are read with Load once flags are bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyCapacity, DefaultCapacity)
	v.SetDefault(KeyLogLevel, logging.DefaultConfig().Level)
	v.SetDefault(KeyLogFormat, logging.DefaultConfig().Format)

	// BYTELRU_STORE_CAPACITY, BYTELRU_LOG_LEVEL, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v, or searches the usual locations for a
// bytelru.{toml,yaml,json} when path is empty. A missing file is only an
// error when path was given explicitly.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("bytelru")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "bytelru"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load resolves the effective configuration and validates it.
func Load(v *viper.Viper) (Config, error) {
	capacity, err := cast.ToIntE(v.Get(KeyCapacity))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyCapacity, err)
	}
	cfg := Config{
		Capacity: capacity,
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
	if cfg.Capacity < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %d", KeyCapacity, cfg.Capacity)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("%s must be json or console, got %q", KeyLogFormat, cfg.Log.Format)
	}
	return cfg, nil
}
