package config

import "time"

// DBConfig 数据库配置
type DBConfig struct {
	Host               string        `yaml:"host" env:"DB_HOST"`
	Port               int           `yaml:"port" env:"DB_PORT"`
	User               string        `yaml:"user" env:"DB_USER"`
	Password           string        `yaml:"password" env:"DB_PASSWORD"`
	Name               string        `yaml:"name" env:"DB_NAME"`
	SSLMode            string        `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxConns           int32         `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns           int32         `yaml:"min_conns" env:"DB_MIN_CONNS"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" env:"DB_SLOW_QUERY_THRESHOLD"`
}

// MQConfig 消息队列配置，URL 为空时不启用事件发布
type MQConfig struct {
	URL string `yaml:"url" env:"MQ_URL"`
}

// RedisConfig Redis配置，Addr 为空时不启用缓存与登录限流
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	// TTL 为 0 表示 token 不过期，只能通过 logout 吊销
	TTL time.Duration `yaml:"ttl" env:"JWT_TTL"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            string        `yaml:"port" env:"SERVER_PORT"`
	Mode            string        `yaml:"mode" env:"GIN_MODE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LogConfig 日志配置，File 为空时输出到 stderr
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
}

// OutboxConfig Outbox Dispatcher 配置
type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval" env:"OUTBOX_INTERVAL"`
	BatchSize  int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE"`
	MaxRetries int           `yaml:"max_retries" env:"OUTBOX_MAX_RETRIES"`
}

// OTelConfig OpenTelemetry 追踪配置，Endpoint 为空时不导出 span
type OTelConfig struct {
	Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}
