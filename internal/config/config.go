// Package config loads factdf settings from defaults, an optional config file,
// FACTDF_* environment variables and command line flags, in increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/build"
	"github.com/invertedv/factdf/schema"
)

// EnvPrefix prefixes the environment variables that override settings, e.g. FACTDF_DSN or FACTDF_LOG_LEVEL.
const EnvPrefix = "FACTDF"

type Config struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`

	Mode          string `mapstructure:"mode"`
	Backend       string `mapstructure:"backend"`
	Intermediates bool   `mapstructure:"intermediates"`
	FailOnDrop    bool   `mapstructure:"fail_on_drop"`
	BatchSize     int    `mapstructure:"batch_size"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Dialect:   "sqlite",
		DSN:       "factdf.db",
		Table:     build.Fact,
		Mode:      string(schema.Keyed),
		Backend:   string(build.BackendSQL),
		BatchSize: 500,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers the default of every key with v.
func SetDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("dialect", def.Dialect)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("table", def.Table)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("backend", def.Backend)
	v.SetDefault("intermediates", def.Intermediates)
	v.SetDefault("fail_on_drop", def.FailOnDrop)
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
}

// Load reads the configuration into a Config. If configFile is empty, factdf.{yaml,toml,json} is looked
// for in the working directory and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("factdf")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that can be checked without a database.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Dialect) {
	case "clickhouse", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported dialect %q", c.Dialect)
	}

	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}

	if err := d.ValidTableName(c.Table); err != nil {
		return fmt.Errorf("table: %w", err)
	}

	if _, err := schema.ParseMode(c.Mode); err != nil {
		return err
	}

	if _, err := build.ParseBackend(c.Backend); err != nil {
		return err
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}

	return nil
}

// KeyMode returns the parsed mode. Validate has already checked it.
func (c *Config) KeyMode() schema.KeyMode {
	m, _ := schema.ParseMode(c.Mode)
	return m
}

func (c *Config) BackendKind() build.Backend {
	b, _ := build.ParseBackend(c.Backend)
	return b
}
