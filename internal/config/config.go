package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	SLA        SLAConfig
	Summarizer SummarizerConfig
	Renderer   RendererConfig
	Storage    StorageConfig
	RateLimit  RateLimitConfig
	Report     ReportConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN disables the
// artifact metadata store; listings then fall back to the reports directory.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values for the rate limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines API key authentication parameters. Keys may be given
// in plaintext (API_KEYS) or as bcrypt hashes (API_KEY_HASHES), both
// comma-separated.
type AuthConfig struct {
	APIKeys                 []string
	APIKeyHashes            []string
	DownloadTokenSecret     string
	DownloadTokenTTLMinutes int
}

// SLAConfig carries per-priority resolution thresholds in hours. OtherHours
// applies to priorities outside the known set.
type SLAConfig struct {
	CriticalHours int
	HighHours     int
	MediumHours   int
	LowHours      int
	OtherHours    int
}

// SummarizerConfig configures the external narrative generation service.
type SummarizerConfig struct {
	APIURL         string
	APIKey         string
	Model          string
	TimeoutSeconds int
	MaxTokens      int
	Temperature    float64
}

// RendererConfig configures the PDF converter.
type RendererConfig struct {
	BinaryPath string
	PageSize   string
	MarginMM   int
}

// StorageConfig locates generated artifacts on disk.
type StorageConfig struct {
	ReportsDir string
}

// RateLimitConfig bounds report generation per API key.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// ReportConfig controls report assembly defaults.
type ReportConfig struct {
	TemplatePath  string
	DefaultLocale string
	SampleDataLoc string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-report-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			APIKeys:                 getEnvAsList("API_KEYS"),
			APIKeyHashes:            getEnvAsList("API_KEY_HASHES"),
			DownloadTokenSecret:     getEnv("DOWNLOAD_TOKEN_SECRET", "dev-secret"),
			DownloadTokenTTLMinutes: getEnvAsInt("DOWNLOAD_TOKEN_TTL_MINUTES", 15),
		},
		SLA: SLAConfig{
			CriticalHours: getEnvAsInt("SLA_CRITICAL_HOURS", 4),
			HighHours:     getEnvAsInt("SLA_HIGH_HOURS", 8),
			MediumHours:   getEnvAsInt("SLA_MEDIUM_HOURS", 24),
			LowHours:      getEnvAsInt("SLA_LOW_HOURS", 72),
			OtherHours:    getEnvAsInt("SLA_OTHER_HOURS", 72),
		},
		Summarizer: SummarizerConfig{
			APIURL:         getEnv("SUMMARIZER_API_URL", "https://api.openai.com/v1"),
			APIKey:         os.Getenv("SUMMARIZER_API_KEY"),
			Model:          getEnv("SUMMARIZER_MODEL", "gpt-4"),
			TimeoutSeconds: getEnvAsInt("SUMMARIZER_TIMEOUT_SECONDS", 20),
			MaxTokens:      getEnvAsInt("SUMMARIZER_MAX_TOKENS", 1000),
			Temperature:    getEnvAsFloat("SUMMARIZER_TEMPERATURE", 0.7),
		},
		Renderer: RendererConfig{
			BinaryPath: os.Getenv("WKHTMLTOPDF_PATH"),
			PageSize:   getEnv("PDF_PAGE_SIZE", "A4"),
			MarginMM:   getEnvAsInt("PDF_MARGIN_MM", 25),
		},
		Storage: StorageConfig{
			ReportsDir: getEnv("REPORTS_DIR", "reports"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 30),
		},
		Report: ReportConfig{
			TemplatePath:  os.Getenv("REPORT_TEMPLATE_PATH"),
			DefaultLocale: getEnv("REPORT_DEFAULT_LOCALE", "en"),
			SampleDataLoc: getEnv("SAMPLE_DATA_PATH", "data/sample_data.json"),
		},
	}

	if len(cfg.Auth.APIKeys) == 0 && len(cfg.Auth.APIKeyHashes) == 0 && cfg.App.Env != "development" {
		return nil, fmt.Errorf("no API keys configured: set API_KEYS or API_KEY_HASHES")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the summarizer call timeout.
func (s SummarizerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
