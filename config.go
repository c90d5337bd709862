package scriptstore

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config controls the API server and its Redis connection.
type Config struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	LogLevel        string        `yaml:"logLevel"`
	// ExposeErrors appends the underlying error to 500 responses.
	ExposeErrors bool `yaml:"exposeErrors"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig describes how to reach the store.
type RedisConfig struct {
	URL            string   `yaml:"url"`
	Addr           string   `yaml:"addr"`
	SentinelAddrs  []string `yaml:"sentinelAddrs"`
	SentinelMaster string   `yaml:"sentinelMaster"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	DB             int      `yaml:"db"`
	KeyPrefix      string   `yaml:"keyPrefix"`
	TLS            bool     `yaml:"tls"`
}

var logLevels = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}

// DefaultConfig returns a config for a local Redis.
func DefaultConfig() Config {
	return Config{
		Listen:          "127.0.0.1:8080",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

// LoadConfig layers DefaultConfig, the YAML file at path (optional), a .env
// file in the working directory (optional) and the process environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SCRIPTSTORE_LISTEN", &c.Listen)
	str("SCRIPTSTORE_LOG_LEVEL", &c.LogLevel)
	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_USERNAME", &c.Redis.Username)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.KeyPrefix)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup("SCRIPTSTORE_EXPOSE_ERRORS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SCRIPTSTORE_EXPOSE_ERRORS: %w", err)
		}
		c.ExposeErrors = b
	}
	return nil
}

// Validate ensures config values are usable.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("Listen must be set")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("ShutdownTimeout must be >0")
	}
	if !validLogLevel(c.LogLevel) {
		return fmt.Errorf("LogLevel %q must be one of %v", c.LogLevel, logLevels)
	}
	if err := c.Redis.validate(); err != nil {
		return fmt.Errorf("Redis invalid: %w", err)
	}
	return nil
}

func (r RedisConfig) validate() error {
	if r.URL == "" && r.Addr == "" && len(r.SentinelAddrs) == 0 {
		return fmt.Errorf("one of URL, Addr or SentinelAddrs is required")
	}
	if len(r.SentinelAddrs) > 0 && r.SentinelMaster == "" {
		return fmt.Errorf("SentinelMaster is required with SentinelAddrs")
	}
	if r.DB < 0 {
		return fmt.Errorf("DB cannot be negative")
	}
	return nil
}

func validLogLevel(level string) bool {
	for _, l := range logLevels {
		if strings.EqualFold(l, level) {
			return true
		}
	}
	return false
}
