package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL is the Postgres DSN for the credit ledger. Empty falls
	// back to the in-memory store (development only).
	DatabaseURL string

	// RedisURL enables the per-account generation throttle when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers    []string
	KafkaAuditTopic string

	// BwipjsURL is the base URL of the bwip-js render server.
	BwipjsURL     string
	RenderTimeout time.Duration

	// GenerationCost is the per-attempt charge in credit hundredths.
	GenerationCost int64

	// GenerationPerMinute bounds generation attempts per account per minute.
	GenerationPerMinute int

	RequestTimeout      time.Duration
	CompensationTimeout time.Duration
	ShutdownTimeout     time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          envStr("CARDGEN_ADDR", ":8080"),
		JWTSigningKey: envStr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		KafkaBrokers:    envList("KAFKA_BROKERS"),
		KafkaAuditTopic: envStr("KAFKA_AUDIT_TOPIC", "cardgen.audit"),

		BwipjsURL:     envStr("BWIPJS_URL", "http://localhost:3030"),
		RenderTimeout: envDuration("RENDER_TIMEOUT", 15*time.Second),

		GenerationCost:      envInt64("GENERATION_COST_CENTS", 100),
		GenerationPerMinute: int(envInt64("GENERATION_PER_MINUTE", 30)),

		RequestTimeout:      envDuration("REQUEST_TIMEOUT", 30*time.Second),
		CompensationTimeout: envDuration("COMPENSATION_TIMEOUT", 5*time.Second),
		ShutdownTimeout:     envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
