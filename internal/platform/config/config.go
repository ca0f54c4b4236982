package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; defaults target local development.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	// LedgerURL points at the ledger gateway. Empty means the in-process
	// simulator is used (development and tests).
	LedgerURL     string
	LedgerTimeout time.Duration

	// KafkaBrokers enables best-effort journal fan-out when non-empty.
	KafkaBrokers []string
	JournalTopic string

	// DIDMethod is the method segment of minted identifiers (did:<method>:...).
	DIDMethod string

	ResolutionCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               getenv("ANCHORID_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("ANCHORID_DATABASE_URL"),
		RedisURL:           os.Getenv("ANCHORID_REDIS_URL"),
		LedgerURL:          os.Getenv("ANCHORID_LEDGER_URL"),
		LedgerTimeout:      getduration("ANCHORID_LEDGER_TIMEOUT", 15*time.Second),
		JournalTopic:       getenv("ANCHORID_JOURNAL_TOPIC", "anchorid.ledger-journal"),
		DIDMethod:          getenv("ANCHORID_DID_METHOD", "anchor"),
		ResolutionCacheTTL: getduration("ANCHORID_RESOLUTION_CACHE_TTL", 5*time.Minute),
	}
	if brokers := os.Getenv("ANCHORID_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
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
