package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by ARBITER_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("ARBITER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func CatalogBaseURL() string {
	u := os.Getenv("CATALOG_BASE_URL")
	if u == "" {
		return "https://api.checkmesh.io"
	}
	return u
}

func RegistryBaseURL() string {
	return os.Getenv("REGISTRY_BASE_URL")
}

func LedgerBaseURL() string {
	return os.Getenv("LEDGER_BASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// AnalyzerProvider returns the configured assessment analyzer.
// Defaults to "openai" if not set. Valid values: openai, mock
func AnalyzerProvider() string {
	p := os.Getenv("ANALYZER_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// AnalyzerAPIKey returns the API key for the configured analyzer.
func AnalyzerAPIKey() string {
	switch AnalyzerProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// RoundInterval returns the pause between validation rounds.
// Defaults to 25 minutes if not set.
func RoundInterval() time.Duration {
	mins, err := strconv.Atoi(os.Getenv("ROUND_INTERVAL_MINUTES"))
	if err != nil || mins <= 0 {
		return 25 * time.Minute
	}
	return time.Duration(mins) * time.Minute
}

// DispatchTimeout returns the per-round-trip timeout for prediction
// requests to agents. Defaults to 25 seconds if not set.
func DispatchTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("DISPATCH_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 25 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// ScoreConcurrency returns the worker limit for concurrent per-agent
// scoring within one item. Defaults to 8 if not set.
func ScoreConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("SCORE_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 8
	}
	return n
}

// PredictionCacheSize returns the max entries of the per-round
// prediction cache. Defaults to 256 if not set.
func PredictionCacheSize() int {
	n, err := strconv.Atoi(os.Getenv("PREDICTION_CACHE_SIZE"))
	if err != nil || n <= 0 {
		return 256
	}
	return n
}

// RateLimitRPS returns requests per second limit for the ops API.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// CatalogRPS returns the request rate allowed against the catalog API.
// Defaults to 2 if not set.
func CatalogRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("CATALOG_RPS"), 64)
	if err != nil || rps <= 0 {
		return 2
	}
	return rps
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
