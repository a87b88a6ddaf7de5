package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings. Every field has an environment
// variable; the service falls back to in-memory stores when PGDSN is empty.
type Config struct {
	Env         string
	Port        string
	PGDSN       string
	TokenSecret string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RateBurst   int
	RatePerSec  int
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Env:         getEnv("DOCUVAULT_ENV", "development"),
		Port:        getEnv("DOCUVAULT_PORT", "8080"),
		PGDSN:       os.Getenv("DOCUVAULT_PG_DSN"),
		TokenSecret: getEnv("DOCUVAULT_TOKEN_SECRET", ""),
		AccessTTL:   getEnvDuration("DOCUVAULT_ACCESS_TTL", time.Hour),
		RefreshTTL:  getEnvDuration("DOCUVAULT_REFRESH_TTL", 7*24*time.Hour),
		RateBurst:   getEnvInt("DOCUVAULT_RATE_BURST", 20),
		RatePerSec:  getEnvInt("DOCUVAULT_RATE_PER_SEC", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
