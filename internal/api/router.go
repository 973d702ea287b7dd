package api

import (
	"log/slog"
	"net/http"

	"github.com/onnwee/placerank/internal/middleware"
	"github.com/onnwee/placerank/internal/tracing"
)

// RouterConfig holds the handlers and middleware dependencies of the API.
type RouterConfig struct {
	Recommend *RecommendHandlers
	Health    *HealthHandlers
	Metrics   http.Handler // serves /metrics; nil leaves the route unregistered

	Logger      *slog.Logger
	HTTPMetrics *middleware.Metrics // nil disables request metrics

	// Per-client limits. GlobalLimit covers every route except the probes
	// and /metrics; RecommendLimit additionally covers /api/recommend.
	// A nil store or a zero config disables the corresponding limit.
	RateLimitStore middleware.RateLimitStore
	GlobalLimit    middleware.RateLimitConfig
	RecommendLimit middleware.RateLimitConfig

	CORSOrigins []string
	ServiceName string // span name prefix for server spans
}

// NewRouter registers every route and wraps the mux in the middleware chain:
// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> routes.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	var recommend http.Handler = http.HandlerFunc(cfg.Recommend.Recommend)
	if cfg.RateLimitStore != nil && cfg.RecommendLimit.Validate() == nil {
		keyFunc := middleware.ScopedKeyFunc("recommend", middleware.IPKeyFunc())
		recommend = middleware.RateLimiter(cfg.RateLimitStore, cfg.RecommendLimit, keyFunc, cfg.HTTPMetrics)(recommend)
	}
	mux.Handle("/api/recommend", recommend)
	mux.HandleFunc("/api/attributes", cfg.Recommend.Attributes)
	mux.HandleFunc("/api/places", cfg.Recommend.ListPlaces)
	mux.HandleFunc("/api/places/{id}", cfg.Recommend.GetPlace)

	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only the exact root path is served; everything else is a 404.
		if r.URL.Path != "/" {
			writeCodedError(w, r, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{
			"service": "placerank-api",
			"version": tracing.ServiceVersion,
		})
	})

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "placerank-api"
	}

	var handler http.Handler = mux
	if cfg.RateLimitStore != nil && cfg.GlobalLimit.Validate() == nil {
		keyFunc := middleware.ScopedKeyFunc("global", middleware.IPKeyFunc())
		handler = exemptOperational(mux, middleware.RateLimiter(cfg.RateLimitStore, cfg.GlobalLimit, keyFunc, cfg.HTTPMetrics)(mux))
	}
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins))(handler)
	if cfg.HTTPMetrics != nil {
		handler = middleware.HTTPMetrics(cfg.HTTPMetrics)(handler)
	}
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	return middleware.RequestID(handler)
}

// exemptOperational serves health probes and /metrics from open and every
// other path from limited.
func exemptOperational(open, limited http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/ready", "/metrics":
			open.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}
