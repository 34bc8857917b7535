package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/tripagenda/bookings/internal/domain"
	"github.com/tripagenda/bookings/internal/pricing"
	"github.com/tripagenda/bookings/internal/rategate"
)

type Config struct {
	HTTPAddr     string
	CRDBDSN      string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string

	// TicketSecret signs ticket codes. Required; never a compile-time
	// literal.
	TicketSecret string

	PricingPolicy    pricing.Policy
	EarlyBirdPercent int64
	BulkPercent      int64
	BulkThreshold    int

	RateWindow     time.Duration
	RateMax        int
	RateGateRedis  bool
	IdempotencyTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     envStr("HTTP_ADDR", ":8080"),
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		TicketSecret: os.Getenv("TICKET_SECRET"),

		PricingPolicy:    pricing.Policy(envStr("PRICING_POLICY", string(pricing.PolicyStandard))),
		EarlyBirdPercent: int64(envInt("EARLYBIRD_PERCENT", 15)),
		BulkPercent:      int64(envInt("BULK_PERCENT", 20)),
		BulkThreshold:    envInt("BULK_THRESHOLD", 5),

		RateWindow:     envDur("RATE_WINDOW", rategate.DefaultWindow),
		RateMax:        envInt("RATE_MAX", rategate.DefaultMax),
		RateGateRedis:  envBool("RATE_GATE_REDIS", false),
		IdempotencyTTL: envDur("IDEMPOTENCY_TTL", time.Hour),
	}

	if cfg.TicketSecret == "" {
		return nil, errors.Wrap(domain.ErrConfiguration, "TICKET_SECRET is required")
	}
	switch cfg.PricingPolicy {
	case pricing.PolicyStandard, pricing.PolicyEarlyBird, pricing.PolicyBulk:
	default:
		return nil, errors.Wrapf(domain.ErrConfiguration, "unknown PRICING_POLICY %q", cfg.PricingPolicy)
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
