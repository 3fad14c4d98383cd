package config

import (
	"os"
	"strings"
	"time"

	strutil "foodbridge/pkg/platform/strings"
)

// Config captures process-level configuration. Everything comes from the
// environment so main stays lean; a .env file is honored in development.
type Config struct {
	Addr        string
	MetricsAddr string

	// DatabaseURL selects the Postgres-backed stores. Empty means in-memory,
	// which is what the tests and local demos use.
	DatabaseURL string

	// RedisURL enables the unread-notification counter cache. Optional.
	RedisURL string

	// KafkaBrokers enables the audit event stream. Optional.
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string

	// AdminTokenHash is a bcrypt hash of the admin token. AdminToken is the
	// plaintext fallback for development setups.
	AdminTokenHash string
	AdminToken     string

	// ExpirySweepSchedule is a cron expression; empty disables the sweep.
	ExpirySweepSchedule string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                getenv("FOODBRIDGE_ADDR", ":8080"),
		MetricsAddr:         getenv("FOODBRIDGE_METRICS_ADDR", ":9090"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		AuditTopic:          getenv("AUDIT_TOPIC", "foodbridge.audit"),
		JWTSigningKey:       getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminTokenHash:      os.Getenv("ADMIN_TOKEN_HASH"),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
		ExpirySweepSchedule: os.Getenv("EXPIRY_SWEEP_SCHEDULE"),
		ShutdownTimeout:     10 * time.Second,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strutil.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
