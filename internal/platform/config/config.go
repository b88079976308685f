package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. It is read once at startup;
// nothing mutates it afterwards.
type Server struct {
	Addr          string
	JWTSigningKey string

	// Audit pipeline settings. QueueCapacity bounds the in-memory event
	// queue for the lifetime of the process.
	QueueCapacity  int
	DrainBatchSize int
	ShutdownGrace  time.Duration

	// Claims cache TTL for the policy evaluator. Zero disables caching.
	ClaimsCacheTTL time.Duration

	PostgresDSN string
	RedisAddr   string

	// Optional Kafka mirror for persisted audit events. Empty brokers
	// disables the sink.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("CARELEDGER_ADDR", ":8080"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		QueueCapacity:  envInt("CARELEDGER_AUDIT_QUEUE_CAPACITY", 1000),
		DrainBatchSize: envInt("CARELEDGER_AUDIT_DRAIN_BATCH", 64),
		ShutdownGrace:  envDuration("CARELEDGER_SHUTDOWN_GRACE", 5*time.Second),
		ClaimsCacheTTL: envDuration("CARELEDGER_CLAIMS_CACHE_TTL", 30*time.Second),
		PostgresDSN:    os.Getenv("CARELEDGER_POSTGRES_DSN"),
		RedisAddr:      os.Getenv("CARELEDGER_REDIS_ADDR"),
		KafkaTopic:     envOr("CARELEDGER_KAFKA_AUDIT_TOPIC", "careledger.audit-events"),
	}
	if brokers := os.Getenv("CARELEDGER_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
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
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
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
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
