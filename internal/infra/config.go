package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend identifiers accepted by STORAGE_BACKEND.
const (
	StorageBackendLocal    = "local"
	StorageBackendSupabase = "supabase"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StorageBackend     string
	StoragePath        string
	StorageBaseURL     string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	PipelineWorkers  int
	PipelineQueue    int
	ImageConcurrency int

	GeoIPDBPath   string
	DefaultLocale string
	BrandTag      string

	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageBackend:     getEnv("STORAGE_BACKEND", StorageBackendLocal),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", "plaques"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		PipelineWorkers:  getEnvInt("PIPELINE_WORKERS", 4),
		PipelineQueue:    getEnvInt("PIPELINE_QUEUE_SIZE", 64),
		ImageConcurrency: getEnvInt("PIPELINE_IMAGE_CONCURRENCY", 3),

		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
		BrandTag:      getEnv("BRAND_TAG", "RIALTOR"),

		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.StorageBackend {
	case StorageBackendLocal:
	case StorageBackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required when STORAGE_BACKEND=supabase")
		}
		if cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORAGE_BACKEND=supabase")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.DatabaseURL == "" && cfg.AppEnv != "development" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.PipelineWorkers < 1 {
		cfg.PipelineWorkers = 1
	}
	if cfg.ImageConcurrency < 1 {
		cfg.ImageConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
