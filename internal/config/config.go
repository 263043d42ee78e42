package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a YAML file with
// environment-variable overrides for the connection strings.
type Config struct {
	PostgresURL   string `yaml:"postgres_url"`
	AMQPURL       string `yaml:"amqp_url"`
	MigrationsDir string `yaml:"migrations_dir"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Agent     AgentConfig     `yaml:"agent"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Settings  SettingsConfig  `yaml:"settings"`
}

type SchedulerConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds"`
	StuckTimeoutHours int `yaml:"stuck_timeout_hours"`
}

type DispatchConfig struct {
	RetryCount        int `yaml:"retry_count"`
	RetryDelaySeconds int `yaml:"retry_delay_seconds"`
}

type AgentConfig struct {
	ID                   string `yaml:"id"`
	Queue                string `yaml:"queue"`
	Environment          string `yaml:"environment"`
	MaxConcurrent        int64  `yaml:"max_concurrent"`
	RunnerTimeoutMinutes int    `yaml:"runner_timeout_minutes"`
}

type WebhookConfig struct {
	Port int `yaml:"port"`
}

type SettingsConfig struct {
	File       string `yaml:"file"`
	TTLMinutes int    `yaml:"ttl_minutes"`
	Default    string `yaml:"default"`
}

// Load reads the YAML file when path is non-empty, then applies env overrides
// and defaults. A missing file with env-provided connection strings is fine.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if url := os.Getenv("DATAORCH_POSTGRES_URL"); url != "" {
		cfg.PostgresURL = url
	}
	if url := os.Getenv("DATAORCH_AMQP_URL"); url != "" {
		cfg.AMQPURL = url
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MigrationsDir == "" {
		c.MigrationsDir = "./migrations"
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = 60
	}
	if c.Scheduler.StuckTimeoutHours <= 0 {
		c.Scheduler.StuckTimeoutHours = 24
	}
	if c.Dispatch.RetryCount <= 0 {
		c.Dispatch.RetryCount = 3
	}
	if c.Dispatch.RetryDelaySeconds <= 0 {
		c.Dispatch.RetryDelaySeconds = 5
	}
	if c.Agent.MaxConcurrent <= 0 {
		c.Agent.MaxConcurrent = 5
	}
	if c.Agent.RunnerTimeoutMinutes <= 0 {
		c.Agent.RunnerTimeoutMinutes = 30
	}
	if c.Webhook.Port <= 0 {
		c.Webhook.Port = 8080
	}
	if c.Settings.TTLMinutes <= 0 {
		c.Settings.TTLMinutes = 5
	}
	if c.Settings.Default == "" {
		c.Settings.Default = "{}"
	}
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

func (c *Config) StuckTimeout() time.Duration {
	return time.Duration(c.Scheduler.StuckTimeoutHours) * time.Hour
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Dispatch.RetryDelaySeconds) * time.Second
}

func (c *Config) RunnerTimeout() time.Duration {
	return time.Duration(c.Agent.RunnerTimeoutMinutes) * time.Minute
}

func (c *Config) SettingsTTL() time.Duration {
	return time.Duration(c.Settings.TTLMinutes) * time.Minute
}
