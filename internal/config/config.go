package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts human-friendly YAML values like "90s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LimiterConfig drives the Redis admission limiter. Limits are per caller
// identity per window.
type LimiterConfig struct {
	IssueLimit   int      `yaml:"issue_limit"`
	ConfirmLimit int      `yaml:"confirm_limit"`
	Window       Duration `yaml:"window"`
}

type SweeperConfig struct {
	Interval Duration `yaml:"interval"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Limiter  LimiterConfig  `yaml:"limiter"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Limiter.IssueLimit <= 0 {
		cfg.Limiter.IssueLimit = 10
	}
	if cfg.Limiter.ConfirmLimit <= 0 {
		cfg.Limiter.ConfirmLimit = 30
	}
	if cfg.Limiter.Window <= 0 {
		cfg.Limiter.Window = Duration(time.Minute)
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = Duration(2 * time.Minute)
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}
