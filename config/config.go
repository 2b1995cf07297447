package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // session-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"maxConns"`
	MinConns       int32  `yaml:"minConns"`
	Migrate        bool   `yaml:"migrate"`
	MigrationsPath string `yaml:"migrationsPath"`
}

type Redis struct {
	URL string `yaml:"url"`
}

type Worker struct {
	Enabled     bool `yaml:"enabled"`
	Concurrency int  `yaml:"concurrency"`
}

type Cache struct {
	ViewTTL string `yaml:"viewTTL"` // напр. "60s"
}

type Admission struct {
	RetryAttempts int    `yaml:"retryAttempts"`
	RetryBackoff  string `yaml:"retryBackoff"` // напр. "50ms"
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Logging   Logging   `yaml:"logging"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Worker    Worker    `yaml:"worker"`
	Cache     Cache     `yaml:"cache"`
	Admission Admission `yaml:"admission"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	// дефолты, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "session-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Postgres.MigrationsPath == "" {
		c.Postgres.MigrationsPath = "./migrations"
	}
	return nil
}

func (c *Config) ViewTTL() time.Duration {
	return parseDurationOr(60*time.Second, c.Cache.ViewTTL)
}

func (c *Config) RetryBackoff() time.Duration {
	return parseDurationOr(50*time.Millisecond, c.Admission.RetryBackoff)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
