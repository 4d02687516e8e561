package server

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/auth"
	"github.com/strefethen/schedule-maker-go/internal/config"
	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/history"
	"github.com/strefethen/schedule-maker-go/internal/maintenance"
	"github.com/strefethen/schedule-maker-go/internal/schedule"
	"github.com/strefethen/schedule-maker-go/internal/settings"
	"github.com/strefethen/schedule-maker-go/internal/theme"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs all incoming HTTP requests
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.status, time.Since(start).Round(time.Millisecond))
	})
}

// Options controls server wiring.
type Options struct {
	DisableMaintenance bool
}

// NewHandler builds the HTTP handler and returns a shutdown function.
func NewHandler(cfg config.Config, options Options) (http.Handler, func(context.Context) error, error) {
	log.Printf("Using database: %s", cfg.SQLiteDBPath)
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.StripSlashes)
	router.Use(requestLoggerMiddleware)
	router.Use(api.RequestIDMiddleware)
	router.Use(api.RecovererMiddleware)
	router.Use(auth.Middleware(cfg))

	registerHealthRoutes(router)

	pairingStore := auth.NewPairingStore(5 * time.Minute)
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	pairingStore.StartCleanup(shutdownCtx, time.Minute)
	auth.RegisterRoutes(router, pairingStore, cfg)

	// Change bus and WebSocket hub push table invalidations to the editor.
	bus := events.NewBus()
	hub := events.NewHub(bus, nil)
	hub.Start()
	events.RegisterRoutes(router, hub)

	assetService := assets.NewService(dbPair, bus, nil)
	assets.RegisterRoutes(router, assetService)

	themeService := theme.NewService(dbPair, bus, nil)
	if err := themeService.EnsurePresets(); err != nil {
		hub.Stop()
		shutdownCancel()
		dbPair.Close()
		return nil, nil, err
	}
	theme.RegisterRoutes(router, themeService)

	scheduleService := schedule.NewService(dbPair, assetService, themeService, bus, nil, cfg.DefaultThemeSlug, cfg.DefaultTimezone)
	schedule.RegisterRoutes(router, scheduleService)

	engine := history.NewEngine(dbPair, scheduleService, nil,
		time.Duration(cfg.SnapshotDebounceMs)*time.Millisecond, cfg.HistoryCap)
	if err := engine.Prime(); err != nil {
		log.Printf("history baseline priming failed: %v", err)
	}
	history.RegisterRoutes(router, engine, scheduleService)

	settingsService := settings.NewService(dbPair, assetService.Repository(), bus, nil)
	settings.RegisterRoutes(router, settingsService)

	janitor := maintenance.NewJanitor(assetService.Repository(), engine.Repository(), bus,
		nil, cfg.MaintenanceCron, cfg.HistoryCap)
	if cfg.MaintenanceEnabled && !options.DisableMaintenance {
		if err := janitor.Start(); err != nil {
			hub.Stop()
			shutdownCancel()
			dbPair.Close()
			return nil, nil, err
		}
	}

	shutdown := func(ctx context.Context) error {
		shutdownCancel()
		janitor.Stop()
		engine.Stop()
		hub.Stop()
		if ctx == nil {
			ctx = context.Background()
		}
		return dbPair.Close()
	}

	return router, shutdown, nil
}

func registerHealthRoutes(router chi.Router) {
	router.Method(http.MethodGet, "/v1/health", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		response := map[string]any{
			"status":    "healthy",
			"service":   "schedule-maker",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		return api.WriteJSON(w, http.StatusOK, response)
	}))
	router.Method(http.MethodGet, "/v1/health/live", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}))
	router.Method(http.MethodGet, "/v1/health/ready", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}))
}
