package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange credentials
	Exchange        string
	ExchangeKey     string
	ExchangeSecret  string
	ExchangeTestnet bool

	// Engine
	Leverage float64
	ModelID  string
	LogLevel string

	// Signal store. Empty addr selects the in-memory mock source.
	SignalRedisAddr     string
	SignalRedisPassword string

	// Unit-position smoothing. Halflife 0 disables smoothing.
	SmootherHalflife  float64
	SmootherReset     float64
	SmootherStatePath string

	// Infrastructure
	JournalPath string
	MetricsAddr string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Exchange:        mustEnv("EXCHANGE"),
		ExchangeKey:     getEnv("EXCHANGE_API_KEY", ""),
		ExchangeSecret:  getEnv("EXCHANGE_API_SECRET", ""),
		ExchangeTestnet: getEnv("EXCHANGE_TESTNET", "") == "true",

		Leverage: mustFloatEnv("LEVERAGE"),
		ModelID:  mustEnv("MODEL_ID"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SignalRedisAddr:     getEnv("SIGNAL_REDIS_ADDR", ""),
		SignalRedisPassword: getEnv("SIGNAL_REDIS_PASSWORD", ""),

		SmootherHalflife:  floatEnv("SMOOTHER_HALFLIFE", 0),
		SmootherReset:     floatEnv("SMOOTHER_RESET_THRESHOLD", 0.1),
		SmootherStatePath: getEnv("SMOOTHER_STATE_PATH", "data/smoother.json"),

		JournalPath: getEnv("JOURNAL_PATH", "data/orders.db"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustFloatEnv(key string) float64 {
	v := mustEnv(key)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("[config] env var %s is not a number: %q", key, v)
	}
	return f
}

func floatEnv(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] ignoring invalid %s value: %q", key, v)
		return fallback
	}
	return f
}
