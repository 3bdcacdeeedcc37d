package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience (read path only)
	MaxRetries     int
	InitialBackoff time.Duration

	// Observability
	OTLPEndpoint string

	// Store
	StoreBackend string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Direct database access (STORE_BACKEND=postgres)
	DatabaseURL string
	AutoMigrate bool

	// De-duplication window; REDIS_URL shares it between replicas
	RedisURL string
	DedupeTTL time.Duration

	// Dashboard summary cache
	SummaryTTL time.Duration

	// Normalization
	StrictValidation  bool
	EndTimePolicy     string
	AnsweredDefault   bool
	DefaultOriginURL  string
	DisplayTimezone   string
	ProviderPathsFile string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendSupabase)),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),

		RedisURL:  getEnv("REDIS_URL", ""),
		DedupeTTL: getEnvDuration("DEDUPE_TTL", 2*time.Minute),

		SummaryTTL: getEnvDuration("SUMMARY_CACHE_TTL", 30*time.Second),

		StrictValidation:  getEnvBool("STRICT_VALIDATION", true),
		EndTimePolicy:     strings.ToLower(getEnv("END_TIME_POLICY", string(normalize.EndTimeNull))),
		AnsweredDefault:   getEnvBool("ANSWERED_DEFAULT", true),
		DefaultOriginURL:  getEnv("DEFAULT_ORIGIN_URL", normalize.DefaultOriginURL),
		DisplayTimezone:   getEnv("DISPLAY_TIMEZONE", "UTC"),
		ProviderPathsFile: getEnv("PROVIDER_PATHS_FILE", ""),
	}
}

// Validate reports every missing or unusable setting at once.
func (c *Config) Validate() error {
	var missing, invalid []string

	switch c.StoreBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseServiceKey == "" {
			missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendMemory:
	default:
		invalid = append(invalid, "STORE_BACKEND="+c.StoreBackend)
	}

	if _, ok := normalize.ParseEndTimePolicy(c.EndTimePolicy); !ok {
		invalid = append(invalid, "END_TIME_POLICY="+c.EndTimePolicy)
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		invalid = append(invalid, "DISPLAY_TIMEZONE="+c.DisplayTimezone)
	}
	if c.DedupeTTL < 0 {
		invalid = append(invalid, "DEDUPE_TTL")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return &domain.ErrConfiguration{Missing: missing, Invalid: invalid}
	}
	return nil
}

// Location returns the display time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
