package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// Upstream is the base URL of the registration backend REST API.
	Upstream UpstreamConfig

	JWT JWTConfig

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	// BootstrapAdmin is the break-glass account usable when the upstream is
	// unreachable. Disabled unless both fields are set.
	BootstrapAdmin BootstrapAdminConfig

	// DraftTTL bounds how long an idle registration draft survives.
	DraftTTL time.Duration
}

type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TTL        time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type BootstrapAdminConfig struct {
	Email        string
	PasswordHash string // bcrypt
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments override every secret-bearing value.
func FromEnv() Config {
	cfg := Config{
		Addr: envOr("PORTAL_ADDR", ":8080"),
		Upstream: UpstreamConfig{
			BaseURL: envOr("PORTAL_UPSTREAM_URL", "http://localhost:9000"),
			Timeout: envDuration("PORTAL_UPSTREAM_TIMEOUT", 15*time.Second),
		},
		JWT: JWTConfig{
			SigningKey: envOr("PORTAL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("PORTAL_JWT_ISSUER", "spiceportal"),
			Audience:   envOr("PORTAL_JWT_AUDIENCE", "spiceportal-web"),
			TTL:        envDuration("PORTAL_JWT_TTL", time.Hour),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("PORTAL_REDIS_URL"),
			PoolSize:     envInt("PORTAL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PORTAL_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("PORTAL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PORTAL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PORTAL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("PORTAL_POSTGRES_URL"),
		},
		BootstrapAdmin: BootstrapAdminConfig{
			Email:        os.Getenv("PORTAL_BOOTSTRAP_ADMIN_EMAIL"),
			PasswordHash: os.Getenv("PORTAL_BOOTSTRAP_ADMIN_PASSWORD_HASH"),
		},
		DraftTTL: envDuration("PORTAL_DRAFT_TTL", 24*time.Hour),
	}

	if brokers := os.Getenv("PORTAL_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitComma(brokers),
			Topic:   envOr("PORTAL_KAFKA_TOPIC", "spiceportal.audit"),
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
