package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the server binary configuration, read from redisless.yaml,
// REDISLESS_* environment variables and command-line flags, in
// increasing order of precedence.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxClients      int           `mapstructure:"max_clients"`
	ScriptCacheSize int           `mapstructure:"script_cache_size"`
	Shards          int           `mapstructure:"shards"`
	Log             LogConfig     `mapstructure:"log"`
}

// LogConfig configures logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("redisless-server", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file")
	fs.String("host", "127.0.0.1", "interface to listen on")
	fs.Int("port", 6379, "TCP port to listen on")
	fs.Duration("idle-timeout", 0, "close clients idle for this long (0 disables)")
	fs.Duration("shutdown-timeout", 10*time.Second, "maximum time to wait for clients on shutdown")
	fs.Int("max-clients", 0, "maximum concurrent clients (0 is unlimited)")
	fs.Int("script-cache-size", 1024, "number of cached Lua scripts")
	fs.Int("shards", 0, "storage shard count (0 picks a default)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "log to this file with rotation instead of stderr")
	fs.Bool("version", false, "print version and exit")
	return fs
}

// flagKeys maps flag names to configuration keys
var flagKeys = map[string]string{
	"host":              "host",
	"port":              "port",
	"idle-timeout":      "idle_timeout",
	"shutdown-timeout":  "shutdown_timeout",
	"max-clients":       "max_clients",
	"script-cache-size": "script_cache_size",
	"shards":            "shards",
	"log-level":         "log.level",
	"log-file":          "log.file",
}

// LoadConfig parses args and merges them with the config file and
// environment.
func LoadConfig(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("REDISLESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("redisless")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/redisless/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Shards < 0 {
		return fmt.Errorf("shards must not be negative")
	}
	return nil
}
