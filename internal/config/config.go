package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Quiz struct {
		QuestionsPerGame  int    `yaml:"questions_per_game"`
		QuestionTimeLimit string `yaml:"question_time_limit"`
		CacheTTL          string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
}

// Default is the configuration used when no config file exists: everything
// in memory, ten questions per game, twenty seconds per question.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Store.Driver = DriverMemory
	cfg.Mongo.Database = "quiz"
	cfg.Quiz.QuestionsPerGame = 10
	cfg.Quiz.QuestionTimeLimit = "20s"
	return cfg
}

// Load reads YAML config from path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	cfg.Store.Driver = ""
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = inferDriver(cfg)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the chosen driver has its connection settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("store driver redis needs redis.addr")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("store driver postgres needs postgres.url")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("store driver mongo needs mongo.uri")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// inferDriver keeps configs that only list connection settings working.
func inferDriver(c Config) string {
	switch {
	case c.Postgres.URL != "":
		return DriverPostgres
	case c.Mongo.URI != "":
		return DriverMongo
	case c.Redis.Addr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
