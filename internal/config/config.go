package config

import (
	"fmt"
	"time"

	"taskhub/pkg/config"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"`
}

type AuthConfig struct {
	// StrictRoles rejects registration roles unknown to pkg/rbac.
	StrictRoles bool `yaml:"strict_roles" env:"AUTH_STRICT_ROLES"`
	// MaxLoginAttempts is the number of failed logins per email allowed inside
	// LockoutWindow. Zero disables throttling; it also needs Redis.
	MaxLoginAttempts int           `yaml:"max_login_attempts" env:"AUTH_MAX_LOGIN_ATTEMPTS"`
	LockoutWindow    time.Duration `yaml:"lockout_window" env:"AUTH_LOCKOUT_WINDOW"`
	TokenCacheTTL    time.Duration `yaml:"token_cache_ttl" env:"AUTH_TOKEN_CACHE_TTL"`
}

type TaskConfig struct {
	// EnforceProjectOwnership requires project_id on a task to reference a
	// project owned by the caller, not just an existing one.
	EnforceProjectOwnership bool `yaml:"enforce_project_ownership" env:"TASKS_ENFORCE_PROJECT_OWNERSHIP"`
}

type Config struct {
	Server  config.ServerConfig `yaml:"server"`
	Storage StorageConfig       `yaml:"storage"`
	DB      config.DBConfig     `yaml:"db"`
	Redis   config.RedisConfig  `yaml:"redis"`
	MQ      config.MQConfig     `yaml:"mq"`
	JWT     config.JWTConfig    `yaml:"jwt"`
	Log     config.LogConfig    `yaml:"log"`
	Outbox  config.OutboxConfig `yaml:"outbox"`
	OTel    config.OTelConfig   `yaml:"otel"`
	Auth    AuthConfig          `yaml:"auth"`
	Tasks   TaskConfig          `yaml:"tasks"`
}

// Default returns the configuration used when neither the yaml file nor the
// environment set a value.
func Default() *Config {
	return &Config{
		Server: config.ServerConfig{
			Port:            ":8080",
			Mode:            "release",
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{Driver: StoragePostgres},
		DB: config.DBConfig{
			Host:               "localhost",
			Port:               5432,
			User:               "postgres",
			Name:               "taskhub",
			MaxConns:           10,
			MinConns:           2,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Log: config.LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Outbox: config.OutboxConfig{
			Interval:   time.Second,
			BatchSize:  100,
			MaxRetries: 5,
		},
		OTel: config.OTelConfig{ServiceName: "taskhub"},
		Auth: AuthConfig{
			MaxLoginAttempts: 5,
			LockoutWindow:    time.Minute,
			TokenCacheTTL:    10 * time.Minute,
		},
		Tasks: TaskConfig{EnforceProjectOwnership: true},
	}
}

// Load reads the config file at path on top of Default and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := config.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	return nil
}
