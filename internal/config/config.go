// Package config reads process settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nazeru/storefront-checkout-go/pkg/contracts"
)

type Config struct {
	Port           string
	MagentoBaseURL string
	RequestTimeout time.Duration
	DatabaseURL    string
	KafkaBrokers   string
	KafkaTopic     string
	SessionID      string
	RelayBatchSize int
	RelayInterval  time.Duration
}

// Load reads the storefront settings. MAGENTO_BASE_URL is required.
func Load() (Config, error) {
	cfg := LoadRelay()
	cfg.MagentoBaseURL = strings.TrimRight(getenv("MAGENTO_BASE_URL", ""), "/")
	if cfg.MagentoBaseURL == "" {
		return Config{}, errors.New("MAGENTO_BASE_URL is required")
	}
	toutMS, err := strconv.Atoi(getenv("REQUEST_TIMEOUT_MS", "2500"))
	if err != nil || toutMS <= 0 {
		return Config{}, errors.New("REQUEST_TIMEOUT_MS must be a positive integer")
	}
	cfg.RequestTimeout = time.Duration(toutMS) * time.Millisecond
	return cfg, nil
}

// LoadRelay reads the settings shared with processes that never talk to the
// commerce backend.
func LoadRelay() Config {
	batch, err := strconv.Atoi(getenv("RELAY_BATCH_SIZE", "100"))
	if err != nil || batch <= 0 {
		batch = 100
	}
	intervalMS, err := strconv.Atoi(getenv("RELAY_INTERVAL_MS", "1000"))
	if err != nil || intervalMS <= 0 {
		intervalMS = 1000
	}
	return Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		KafkaBrokers:   getenv("KAFKA_BROKERS", ""),
		KafkaTopic:     getenv("KAFKA_TOPIC", contracts.TopicCheckoutEvents),
		SessionID:      getenv("SESSION_ID", ""),
		RelayBatchSize: batch,
		RelayInterval:  time.Duration(intervalMS) * time.Millisecond,
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
