package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Tabix-Group/rialtor-plaques/internal/adapter/repo"
	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/http/handlers"
	"github.com/Tabix-Group/rialtor-plaques/internal/http/httpapi"
	"github.com/Tabix-Group/rialtor-plaques/internal/infra"
	"github.com/Tabix-Group/rialtor-plaques/internal/infra/geoip"
	"github.com/Tabix-Group/rialtor-plaques/internal/middleware"
	"github.com/Tabix-Group/rialtor-plaques/internal/overlay"
	"github.com/Tabix-Group/rialtor-plaques/internal/pipeline"
	"github.com/Tabix-Group/rialtor-plaques/internal/storage"
	"github.com/Tabix-Group/rialtor-plaques/internal/vision"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var jobs domain.PlaqueJobRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		jobs = repo.NewPlaqueJobRepository(pool)
	} else {
		logger.Warn().Msg("api: DATABASE_URL not set, using in-memory job store")
		jobs = repo.NewMemoryPlaqueJobRepository()
	}

	blobs, staticDir, err := newBlobStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	analyzer := vision.NewGeminiAnalyzer(vision.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("api: gemini api key missing, plaques will use the default analysis")
	}

	renderer, err := overlay.NewRenderer(overlay.Options{
		BrandTag: cfg.BrandTag,
		Locale:   cfg.DefaultLocale,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure renderer")
	}

	runner := pipeline.NewRunner(cfg.PipelineWorkers, cfg.PipelineQueue, logger)
	runner.Start(ctx)

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Options{
		Jobs:             jobs,
		Blobs:            blobs,
		Analyzer:         analyzer,
		Renderer:         renderer,
		Runner:           runner,
		Logger:           logger,
		ImageConcurrency: cfg.ImageConcurrency,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure pipeline")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip unavailable")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	app := handlers.NewApp(orchestrator, jobs, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}

	// In-flight jobs finish before exit so every accepted job reaches a
	// terminal status.
	runner.Stop()
	logger.Info().Msg("api: stopped")
}

func newBlobStore(cfg *infra.Config, logger infra.Logger) (storage.BlobStore, string, error) {
	switch cfg.StorageBackend {
	case infra.StorageBackendSupabase:
		store, err := storage.NewSupabaseStore(storage.SupabaseOptions{
			BaseURL:    cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.SupabaseBucket,
		})
		return store, "", err
	default:
		path := cfg.StoragePath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		store, err := storage.NewFileStore(path, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		logger.Info().Str("path", path).Msg("api: using local file storage")
		return store, path, nil
	}
}
