package infra

import "testing"

func clearAppEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_ENV", "PORT", "DATABASE_URL",
		"STORAGE_BACKEND", "STORAGE_PATH", "STORAGE_BASE_URL",
		"SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_BUCKET",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"PIPELINE_WORKERS", "PIPELINE_QUEUE_SIZE", "PIPELINE_IMAGE_CONCURRENCY",
		"GEOIP_DB_PATH", "DEFAULT_LOCALE", "BRAND_TAG",
		"ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearAppEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StorageBackend != StorageBackendLocal {
		t.Fatalf("storage backend = %q", cfg.StorageBackend)
	}
	if cfg.PipelineWorkers != 4 || cfg.PipelineQueue != 64 || cfg.ImageConcurrency != 3 {
		t.Fatalf("pipeline defaults: %+v", cfg)
	}
	if cfg.DefaultLocale != "es" || cfg.BrandTag != "RIALTOR" {
		t.Fatalf("locale/brand defaults: %+v", cfg)
	}
}

func TestLoadConfigRequiresDatabaseOutsideDevelopment(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("APP_ENV", "production")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/plaques")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig with db url: %v", err)
	}
}

func TestLoadConfigSupabaseValidation(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("STORAGE_BACKEND", "supabase")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without supabase settings")
	}

	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "key")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SupabaseBucket != "plaques" {
		t.Fatalf("bucket default = %q", cfg.SupabaseBucket)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadConfigClampsWorkerCounts(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("PIPELINE_WORKERS", "0")
	t.Setenv("PIPELINE_IMAGE_CONCURRENCY", "-2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PipelineWorkers != 1 || cfg.ImageConcurrency != 1 {
		t.Fatalf("clamped values: workers=%d concurrency=%d", cfg.PipelineWorkers, cfg.ImageConcurrency)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" http://a.example , ,http://b.example")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("splitCSV = %+v", got)
	}
}
