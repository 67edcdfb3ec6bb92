package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CartStoreMemory = "memory"
	CartStoreRedis  = "redis"
)

type Config struct {
	App struct {
		Port     string `yaml:"port"`
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Restaurant struct {
		BaseURL          string        `yaml:"base_url"`
		Timeout          time.Duration `yaml:"timeout"`
		RetryCount       int           `yaml:"retry_count"`
		RetryWaitTime    time.Duration `yaml:"retry_wait"`
		RetryMaxWaitTime time.Duration `yaml:"retry_max_wait"`
	} `yaml:"restaurant"`

	Session struct {
		CookieName    string        `yaml:"cookie_name"`
		TTL           time.Duration `yaml:"ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		Secure        bool          `yaml:"secure"`
	} `yaml:"session"`

	Cart struct {
		Store         string `yaml:"store"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"cart"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Port = "8080"
	cfg.App.Env = "development"
	cfg.App.LogLevel = "info"
	cfg.Restaurant.Timeout = 10 * time.Second
	cfg.Restaurant.RetryCount = 2
	cfg.Restaurant.RetryWaitTime = 200 * time.Millisecond
	cfg.Restaurant.RetryMaxWaitTime = 2 * time.Second
	cfg.Session.CookieName = "fast_pizza_session"
	cfg.Session.TTL = 2 * time.Hour
	cfg.Session.SweepInterval = 5 * time.Minute
	cfg.Cart.Store = CartStoreMemory
	cfg.Cart.RedisAddr = "localhost:6379"
	return cfg
}

// Load reads the optional .env file at envPath, then the optional YAML file named by
// CONFIG_FILE, then environment variables, each overriding the previous.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		err := godotenv.Load(envPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	if err := cfg.fromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) fromEnv() error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")

	setString(&cfg.Restaurant.BaseURL, "RESTAURANT_API_URL")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE_NAME")
	setString(&cfg.Cart.Store, "CART_STORE")
	setString(&cfg.Cart.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cart.RedisPassword, "REDIS_PASSWORD")

	var errs []error
	errs = append(errs,
		setDuration(&cfg.Restaurant.Timeout, "RESTAURANT_API_TIMEOUT"),
		setInt(&cfg.Restaurant.RetryCount, "RESTAURANT_API_RETRY_COUNT"),
		setDuration(&cfg.Restaurant.RetryWaitTime, "RESTAURANT_API_RETRY_WAIT"),
		setDuration(&cfg.Restaurant.RetryMaxWaitTime, "RESTAURANT_API_RETRY_MAX_WAIT"),
		setDuration(&cfg.Session.TTL, "SESSION_TTL"),
		setDuration(&cfg.Session.SweepInterval, "SESSION_SWEEP_INTERVAL"),
		setBool(&cfg.Session.Secure, "SESSION_SECURE"),
		setInt(&cfg.Cart.RedisDB, "REDIS_DB"),
	)
	return errors.Join(errs...)
}

func (cfg *Config) validate() error {
	if strings.TrimSpace(cfg.Restaurant.BaseURL) == "" {
		return errors.New("RESTAURANT_API_URL is required")
	}
	if cfg.Restaurant.RetryCount < 0 {
		return errors.New("restaurant retry count must not be negative")
	}
	switch cfg.Cart.Store {
	case CartStoreMemory, CartStoreRedis:
	default:
		return fmt.Errorf("unknown cart store %q, want %s or %s", cfg.Cart.Store, CartStoreMemory, CartStoreRedis)
	}
	if cfg.Cart.Store == CartStoreRedis && cfg.Cart.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for the redis cart store")
	}
	return nil
}

func (cfg *Config) IsDevelopment() bool {
	return cfg.App.Env == "development"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
