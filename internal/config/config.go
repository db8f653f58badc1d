// Package config loads the venue's runtime configuration from the
// environment, with an optional .env file for development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Address        string
	Port           int
	Workers        uint
	MetricsAddress string

	// Kafka publishing is enabled when at least one broker is configured.
	KafkaBrokers []string
	KafkaTopic   string

	// LogEvents additionally writes every event to the structured log.
	LogEvents bool
}

func Default() Config {
	return Config{
		Address:        "0.0.0.0",
		Port:           9001,
		Workers:        64,
		MetricsAddress: ":9102",
		KafkaTopic:     "tyr.events",
	}
}

// Load reads config from the environment on top of the defaults. A missing
// .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("TYR_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("TYR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("TYR_WORKERS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Workers = uint(n)
		}
	}
	if v := os.Getenv("TYR_METRICS_ADDR"); v != "" {
		cfg.MetricsAddress = v
	}
	if v := os.Getenv("TYR_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TYR_KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	if v := os.Getenv("TYR_LOG_EVENTS"); v != "" {
		cfg.LogEvents, _ = strconv.ParseBool(v)
	}
	return cfg
}
