// Package main is the entry point for the placerank API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/placerank/internal/api"
	"github.com/onnwee/placerank/internal/config"
	"github.com/onnwee/placerank/internal/db"
	"github.com/onnwee/placerank/internal/embed"
	"github.com/onnwee/placerank/internal/health"
	"github.com/onnwee/placerank/internal/jobs"
	"github.com/onnwee/placerank/internal/middleware"
	"github.com/onnwee/placerank/internal/place"
	"github.com/onnwee/placerank/internal/preference"
	"github.com/onnwee/placerank/internal/ranking"
	"github.com/onnwee/placerank/internal/sentiment"
	"github.com/onnwee/placerank/internal/tracing"
)

const serviceName = "placerank-api"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (environment variables take precedence)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("placerank API server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, 2*len(summary))
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run wires the service from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.Tracing.Enabled,
		Environment:  cfg.Env,
		ExporterType: cfg.Tracing.ExporterType,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SampleRate,
		InsecureMode: cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := newServices(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      svc.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: api.DefaultRecommendTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// services holds the wired HTTP handler and the resources it owns.
type services struct {
	Handler http.Handler
	closers []func() error
}

// Close releases every owned resource in reverse order.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("failed to release resource", "error", err)
		}
	}
}

// newServices builds stores, collaborators, the ranker and the router.
// Metrics are registered on reg, which also backs /metrics.
func newServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*services, error) {
	svc := &services{}
	healthCfg := api.HealthHandlersConfig{}

	prefMetrics := preference.NewMetrics()
	rankMetrics := ranking.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, m := range []interface{ Register(prometheus.Registerer) error }{prefMetrics, rankMetrics, httpMetrics, jobMetrics} {
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	runner := jobs.NewRunner(jobMetrics, logger)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		svc.closers = append(svc.closers, redisClient.Close)
		healthCfg.CacheChecker = health.NewRedisChecker(redisClient)
	}

	places, err := newPlaceRepository(ctx, cfg, logger, runner, svc, &healthCfg)
	if err != nil {
		svc.Close()
		return nil, err
	}

	embedder, err := newEmbedder(cfg, &healthCfg)
	if err != nil {
		svc.Close()
		return nil, err
	}
	scorer, err := preference.NewScorer(embedder, cfg.Attributes)
	if err != nil {
		svc.Close()
		return nil, err
	}

	// A failed warm-up is retried on the first ranking call.
	_ = runner.Run(ctx, jobs.JobTypeVocabularyInit, 30*time.Second, scorer.Init)

	var cache preference.Cache
	if redisClient != nil {
		cache = preference.NewRedisCache(redisClient)
	} else {
		memCache := preference.NewMemoryCache()
		go runner.RunPeriodic(ctx, jobs.JobTypeProfileCacheSweep, 10*time.Minute, func(context.Context) error {
			if n := memCache.Cleanup(); n > 0 {
				logger.Debug("evicted expired place profiles", "count", n)
			}
			return nil
		})
		cache = memCache
	}
	cached := preference.NewCachedScorer(scorer, cache, cfg.Attributes, cfg.ProfileCacheTTL, prefMetrics, logger)

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}
	ranker, err := ranking.NewRanker(newSentimentAnalyzer(cfg, logger), cached, ranking.Options{
		Weights:       weights,
		MaxDistanceKm: cfg.MaxDistanceKm,
		Concurrency:   cfg.RankConcurrency,
		SortOnRounded: cfg.SortOnRounded,
		Metrics:       rankMetrics,
		Logger:        logger,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}

	routerCfg := api.RouterConfig{
		Recommend: api.NewRecommendHandlers(api.RecommendHandlersConfig{
			Ranker:     ranker,
			Places:     places,
			Attributes: cfg.Attributes,
		}),
		Health:      api.NewHealthHandlers(healthCfg),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:      logger,
		HTTPMetrics: httpMetrics,
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: serviceName,

		RateLimitStore: newRateLimitStore(ctx, redisClient, runner),
		GlobalLimit:    middleware.DefaultGlobalLimit(),
	}
	if cfg.RecommendRateLimit > 0 {
		limit := middleware.DefaultRecommendLimit()
		limit.RequestsPerWindow = cfg.RecommendRateLimit
		routerCfg.RecommendLimit = limit
	}

	svc.Handler = api.NewRouter(routerCfg)
	return svc, nil
}

// newPlaceRepository opens the Postgres catalog, or falls back to the
// in-memory demo catalog when no database is configured. An empty Postgres
// catalog is seeded with the demo places.
func newPlaceRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, runner *jobs.Runner, svc *services, healthCfg *api.HealthHandlersConfig) (place.Repository, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no database configured, serving the demo catalog")
		return place.NewInMemoryRepository(place.DemoPlaces()...), nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, conn.Close)
	if err := db.Migrate(ctx, conn); err != nil {
		return nil, err
	}
	healthCfg.DBChecker = health.NewDBChecker(conn)

	repo := place.NewPostgresRepository(conn, logger)
	err = runner.Run(ctx, jobs.JobTypeCatalogSeed, time.Minute, func(ctx context.Context) error {
		n, err := place.SeedIfEmpty(ctx, repo, place.DemoPlaces())
		if n > 0 {
			logger.Info("seeded empty catalog with demo places", "count", n)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// newEmbedder selects the preference embedding backend.
func newEmbedder(cfg *config.Config, healthCfg *api.HealthHandlersConfig) (embed.Embedder, error) {
	switch cfg.Embedder {
	case config.EmbedderKeyword:
		return preference.NewKeywordEmbedder(cfg.Attributes, preference.DefaultKeywords), nil
	case config.EmbedderJina:
		return embed.NewJinaEmbedder(cfg.JinaAPIKey, embed.DefaultJinaModel), nil
	case config.EmbedderOllama:
		e := embed.NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel)
		healthCfg.EmbedderChecker = health.NewEmbedderChecker(e)
		return e, nil
	}
	return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
}

// newSentimentAnalyzer routes each language to its remote classifier when
// one is configured and to the built-in lexicon otherwise.
func newSentimentAnalyzer(cfg *config.Config, logger *slog.Logger) *sentiment.Router {
	models := map[string]sentiment.Model{
		sentiment.LanguageEnglish: sentiment.NewEnglishLexicon(),
		sentiment.LanguageArabic:  sentiment.NewArabicLexicon(),
	}
	if cfg.SentimentENURL != "" {
		models[sentiment.LanguageEnglish] = sentiment.NewHTTPModel(sentiment.LanguageEnglish, cfg.SentimentENURL, cfg.SentimentAPIToken)
	}
	if cfg.SentimentARURL != "" {
		models[sentiment.LanguageArabic] = sentiment.NewHTTPModel(sentiment.LanguageArabic, cfg.SentimentARURL, cfg.SentimentAPIToken)
	}
	return sentiment.NewRouter(models, logger)
}

// newRateLimitStore shares counters through Redis when available. The
// in-memory store is swept every five minutes until ctx is done.
func newRateLimitStore(ctx context.Context, client *redis.Client, runner *jobs.Runner) middleware.RateLimitStore {
	if client != nil {
		return middleware.NewRedisRateLimitStore(client)
	}
	store := middleware.NewInMemoryRateLimitStore()
	go runner.RunPeriodic(ctx, jobs.JobTypeRateLimitCleanup, 5*time.Minute, func(context.Context) error {
		store.Cleanup()
		return nil
	})
	return store
}
