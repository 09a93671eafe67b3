package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/weatherhist/wwo-history/internal/weather"
)

type AppConfig struct {
	WWOAPIKey  string
	WWOBaseURL string // empty selects the production endpoint

	// Cities to extract on the scheduled refresh.
	Cities []string

	// Frequency is the sampling interval in hours between hourly records.
	Frequency int

	// HistoryDays is the trailing window retrieved by the scheduled refresh.
	HistoryDays int

	// CSVDir is where scheduled exports land. Resolved at load time, never
	// captured earlier.
	CSVDir string

	// HTTPTimeout bounds each provider request and each API-triggered
	// retrieval.
	HTTPTimeout time.Duration

	// RefreshInterval controls how often the scheduler re-extracts.
	RefreshInterval time.Duration

	// StoreMaxTables caps how many cities the in-memory store retains.
	StoreMaxTables int

	Port     string
	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WWOAPIKey = os.Getenv("WWO_API_KEY")
	cfg.WWOBaseURL = os.Getenv("WWO_BASE_URL")

	if cities := os.Getenv("CITIES"); cities != "" {
		for _, c := range strings.Split(cities, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Cities = append(cfg.Cities, c)
			}
		}
	}

	cfg.Frequency = getenvInt("FREQUENCY_HOURS", 3)
	if !weather.ValidFrequency(cfg.Frequency) {
		return nil, fmt.Errorf("invalid FREQUENCY_HOURS %d: must be one of 1, 3, 6, 12", cfg.Frequency)
	}

	cfg.HistoryDays = getenvInt("HISTORY_DAYS", 30)
	if cfg.HistoryDays < 1 {
		return nil, fmt.Errorf("invalid HISTORY_DAYS %d: must be at least 1", cfg.HistoryDays)
	}

	cfg.CSVDir = os.Getenv("CSV_DIR")
	if cfg.CSVDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.CSVDir = wd
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	refreshStr := getenvDefault("REFRESH_INTERVAL", "24h")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.StoreMaxTables = getenvInt("STORE_MAX_TABLES", 16)
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
