package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Tabix-Group/rialtor-plaques/internal/http/handlers"
	"github.com/Tabix-Group/rialtor-plaques/internal/infra"
	"github.com/Tabix-Group/rialtor-plaques/internal/middleware"
)

// Options tunes the router beyond the handler set.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	// StaticDir, when set, mounts local storage under /static for the
	// filesystem blob backend.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Identity,
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/plaques", func(r chi.Router) {
		limit := opts.RateLimitPerMin
		if limit <= 0 {
			limit = 30
		}
		r.With(middleware.RateLimit(limit, time.Minute)).Post("/", app.PlaquesCreate)
		r.Get("/", app.PlaquesList)
		r.Get("/{job_id}", app.PlaqueGet)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
