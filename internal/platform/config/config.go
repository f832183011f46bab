package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all process-level settings. Values come from the
// environment so main stays lean.
type Config struct {
	Server       Server
	Confirmation ConfirmationConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	SMTP         SMTPConfig
	RateLimit    RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string
	// InstanceURL seeds the instance.url setting default when nothing is stored.
	InstanceURL string
	// AdminToken guards the /admin routes. Empty disables them.
	AdminToken string
}

// ConfirmationConfig bounds the pending confirmation store.
type ConfirmationConfig struct {
	TTL             time.Duration
	Capacity        int
	CleanupInterval time.Duration
}

// DatabaseConfig enables the Postgres-backed configuration store when URL is set.
type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

// RedisConfig enables the Redis-backed rate limiter when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables audit streaming when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SMTPConfig enables real mail delivery when Host is set.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig sets the per-IP sliding windows for the public endpoints.
type RateLimitConfig struct {
	StartPerWindow   int
	ConfirmPerWindow int
	Window           time.Duration
	Disabled         bool
}

const (
	DefaultConfirmationTTL      = 5 * time.Minute
	DefaultConfirmationCapacity = 1000
)

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var errs []string
	p := parser{errs: &errs}

	cfg := Config{
		Server: Server{
			Addr:        stringOr("COMMUNE_ADDR", ":8080"),
			LogLevel:    stringOr("LOG_LEVEL", "info"),
			InstanceURL: stringOr("INSTANCE_URL", "http://localhost:8080"),
			AdminToken:  os.Getenv("ADMIN_TOKEN"),
		},
		Confirmation: ConfirmationConfig{
			TTL:             p.duration("CONFIRMATION_TTL", DefaultConfirmationTTL),
			Capacity:        p.int("CONFIRMATION_CAPACITY", DefaultConfirmationCapacity),
			CleanupInterval: p.duration("CONFIRMATION_CLEANUP_INTERVAL", time.Minute),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(p.int("DATABASE_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: stringOr("AUDIT_TOPIC", "commune.audit"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     p.int("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     stringOr("SMTP_FROM", "noreply@localhost"),
		},
		RateLimit: RateLimitConfig{
			StartPerWindow:   p.int("RATELIMIT_START_PER_WINDOW", 5),
			ConfirmPerWindow: p.int("RATELIMIT_CONFIRM_PER_WINDOW", 30),
			Window:           p.duration("RATELIMIT_WINDOW", time.Minute),
			Disabled:         p.bool("RATELIMIT_DISABLED", false),
		},
	}

	if cfg.Confirmation.TTL <= 0 {
		errs = append(errs, "CONFIRMATION_TTL must be positive")
	}
	if cfg.Confirmation.Capacity <= 0 {
		errs = append(errs, "CONFIRMATION_CAPACITY must be positive")
	}
	if cfg.Confirmation.CleanupInterval <= 0 {
		errs = append(errs, "CONFIRMATION_CLEANUP_INTERVAL must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		errs = append(errs, "RATELIMIT_WINDOW must be positive")
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func stringOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors so all bad variables are reported at once.
type parser struct {
	errs *[]string
}

func (p parser) int(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return v
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return v
}

func (p parser) bool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return v
}
