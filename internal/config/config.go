package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL        time.Duration
	SchemaCacheSize int

	// Observability
	OTLPEndpoint string

	// Text generation (Gemini REST API)
	TextGenAPIURL    string
	TextGenAPIKey    string
	TextGenModel     string
	TextGenFastModel string

	// Quote engine
	QuoteCallTimeout       time.Duration
	QuoteBaseDelay         time.Duration
	QuoteInstabilityScale  time.Duration
	QuoteJitter            time.Duration
	QuoteValidity          time.Duration
	SimulateFailures       bool
	InsurerEndpoints       map[string]string // insurer ID -> base URL of a real quoting API
	InsurerEndpointsIgnore []string          // malformed INSURER_ENDPOINTS entries

	// Lead intake
	LeadTopN int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	endpoints, ignored := ParseEndpoints(getEnv("INSURER_ENDPOINTS", ""))

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		SchemaCacheSize: getEnvInt("SCHEMA_CACHE_SIZE", 16),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		TextGenAPIURL:    getEnv("TEXTGEN_API_URL", "https://generativelanguage.googleapis.com"),
		TextGenAPIKey:    getEnv("TEXTGEN_API_KEY", ""),
		TextGenModel:     getEnv("TEXTGEN_MODEL", "gemini-2.5-flash"),
		TextGenFastModel: getEnv("TEXTGEN_FAST_MODEL", "gemini-2.5-flash-lite-latest"),

		QuoteCallTimeout:      getEnvDuration("QUOTE_CALL_TIMEOUT", 5*time.Second),
		QuoteBaseDelay:        getEnvDuration("QUOTE_BASE_DELAY", 800*time.Millisecond),
		QuoteInstabilityScale: getEnvDuration("QUOTE_INSTABILITY_SCALE", 100*time.Millisecond),
		QuoteJitter:           getEnvDuration("QUOTE_JITTER", 500*time.Millisecond),
		QuoteValidity:         getEnvDuration("QUOTE_VALIDITY", 5*24*time.Hour),
		SimulateFailures:      getEnvBool("SIMULATE_FAILURES", false),

		InsurerEndpoints:       endpoints,
		InsurerEndpointsIgnore: ignored,

		LeadTopN: getEnvInt("LEAD_TOP_N", 3),
	}
}

// ParseEndpoints reads "porto=http://host:9001,allianz=http://host:9002".
// Entries without an ID or URL are returned in ignored.
func ParseEndpoints(raw string) (endpoints map[string]string, ignored []string) {
	endpoints = make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, url, ok := strings.Cut(entry, "=")
		id, url = strings.TrimSpace(id), strings.TrimSpace(url)
		if !ok || id == "" || url == "" {
			ignored = append(ignored, entry)
			continue
		}
		endpoints[id] = url
	}
	return endpoints, ignored
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.QuoteCallTimeout <= 0 {
		return fmt.Errorf("QUOTE_CALL_TIMEOUT must be positive, got %s", c.QuoteCallTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
