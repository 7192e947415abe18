package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/engarde-app/signup-sync/internal/funnel"
	httpmiddleware "github.com/engarde-app/signup-sync/internal/http/middleware"
	"github.com/engarde-app/signup-sync/internal/tracking"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

const serviceVersion = "2.0.0"

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	SyncHandler     *funnel.Handler
	TrackingHandler *tracking.Handler
	MetricsHandler  http.Handler

	// Service-to-service auth: shared token and/or HMAC JWT secret.
	ServiceToken     string
	ServiceJWTSecret string

	CORSAllowedOrigins []string
}

type healthResponse struct {
	Service          string   `json:"service"`
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	SupportedSources []string `json:"supported_sources,omitempty"`
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/", serviceInfo)
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Internal endpoints, service-to-service auth required.
	r.Group(func(internal chi.Router) {
		internal.Use(httpmiddleware.ServiceAuth(cfg.ServiceToken, cfg.ServiceJWTSecret))

		if cfg.SyncHandler != nil {
			internal.Route("/sync", func(r chi.Router) {
				r.Post("/all", cfg.SyncHandler.SyncAll)
				r.Post("/{sourceType}", cfg.SyncHandler.SyncSource)
				r.Get("/status/{sourceType}", cfg.SyncHandler.Status)
			})
		}
		if cfg.TrackingHandler != nil {
			internal.Route("/funnel", func(r chi.Router) {
				r.Post("/event", cfg.TrackingHandler.TrackEvent)
				r.Post("/conversion", cfg.TrackingHandler.MarkConversion)
			})
			internal.Get("/analytics/funnel-metrics", cfg.TrackingHandler.Metrics)
		}
	})

	return r
}

func serviceInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Service:          "En Garde SignUp_Sync Service",
		Status:           "running",
		Version:          serviceVersion,
		SupportedSources: funnel.InboundSourceTypes,
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Service: "signup-sync",
		Status:  "healthy",
		Version: serviceVersion,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
