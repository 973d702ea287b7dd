// Package config provides configuration loading and validation for the
// placerank API server and CLI.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/placerank/internal/preference"
	"github.com/onnwee/placerank/internal/tracing"
)

// Embedder backends selectable with the embedder key.
const (
	EmbedderKeyword = "keyword"
	EmbedderJina    = "jina"
	EmbedderOllama  = "ollama"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port        int      `koanf:"port"`
	Env         string   `koanf:"env"`
	CORSOrigins []string `koanf:"cors_origins"`

	// Per-client requests per minute on /api/recommend. 0 disables rate limiting.
	RecommendRateLimit int `koanf:"recommend_rate_limit"`

	// Ranking
	RankingCalibrationPath string   `koanf:"ranking_calibration_path"`
	MaxDistanceKm          float64  `koanf:"max_distance_km"`
	RankConcurrency        int      `koanf:"rank_concurrency"` // 0 means runtime.NumCPU()
	SortOnRounded          bool     `koanf:"sort_on_rounded"`
	Attributes             []string `koanf:"attributes"`

	// Preference embedding
	Embedder    string `koanf:"embedder"`
	JinaAPIKey  string `koanf:"jina_api_key"`
	OllamaURL   string `koanf:"ollama_url"`
	OllamaModel string `koanf:"ollama_model"`

	// Sentiment classifiers. Empty URLs fall back to the built-in lexicons.
	SentimentENURL    string `koanf:"sentiment_en_url"`
	SentimentARURL    string `koanf:"sentiment_ar_url"`
	SentimentAPIToken string `koanf:"sentiment_api_token"`

	// Profile cache
	RedisURL        string        `koanf:"redis_url"`
	ProfileCacheTTL time.Duration `koanf:"profile_cache_ttl"`

	// Place catalog. Empty uses the in-memory demo catalog.
	DatabaseURL string `koanf:"database_url"`

	Tracing TracingConfig `koanf:"tracing"`
}

// TracingConfig holds the OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ExporterType string  `koanf:"exporter_type"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SampleRate   float64 `koanf:"sample_rate"`
	Insecure     bool    `koanf:"insecure"`
}

// Configuration validation errors.
var (
	ErrInvalidPort            = errors.New("PORT must be a valid integer between 1 and 65535")
	ErrInvalidEmbedder        = errors.New("EMBEDDER must be one of keyword, jina, ollama")
	ErrMissingJinaAPIKey      = errors.New("JINA_API_KEY is required when EMBEDDER=jina")
	ErrMissingOllamaURL       = errors.New("OLLAMA_URL is required when EMBEDDER=ollama")
	ErrInvalidMaxDistance     = errors.New("MAX_DISTANCE_KM must be > 0")
	ErrInvalidConcurrency     = errors.New("RANK_CONCURRENCY must be >= 0")
	ErrInvalidCacheTTL        = errors.New("PROFILE_CACHE_TTL must be >= 0")
	ErrInvalidRateLimit       = errors.New("RECOMMEND_RATE_LIMIT must be >= 0")
	ErrEmptyAttributes        = errors.New("attributes must contain at least one label")
	ErrInvalidSampleRate      = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrInvalidExporterType    = errors.New("TRACING_EXPORTER_TYPE must be otlp-grpc or otlp-http")
	ErrMissingTracingEndpoint = errors.New("TRACING_OTLP_ENDPOINT is required when tracing is enabled")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultMaxDistanceKm          = 10.0
	DefaultEmbedder               = EmbedderKeyword
	DefaultOllamaURL              = "http://localhost:11434"
	DefaultOllamaModel            = "nomic-embed-text"
	DefaultProfileCacheTTL        = 24 * time.Hour
	DefaultRecommendRateLimit     = 60
	DefaultTracingExporter        = tracing.ExporterOTLPHTTP
	DefaultTracingSampleRate      = 0.1
	DefaultRankingCalibrationPath = ""
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// PLACERANK_PORT first, then PORT
	port, err := getEnvIntOrDefaultMulti([]string{"PLACERANK_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)

	maxDistance, err := getEnvFloatOrDefault("MAX_DISTANCE_KM", k.Float64("max_distance_km"), DefaultMaxDistanceKm)
	collect(err)

	concurrency, err := getEnvIntOrDefault("RANK_CONCURRENCY", k.Int("rank_concurrency"), 0)
	collect(err)

	rateLimit := DefaultRecommendRateLimit
	if k.Exists("recommend_rate_limit") {
		rateLimit = k.Int("recommend_rate_limit")
	}
	rateLimit, err = getEnvIntOrDefault("RECOMMEND_RATE_LIMIT", rateLimit, rateLimit)
	collect(err)

	cacheTTL := DefaultProfileCacheTTL
	if k.Exists("profile_cache_ttl") {
		cacheTTL = k.Duration("profile_cache_ttl")
	}
	cacheTTL, err = getEnvDurationOrDefault("PROFILE_CACHE_TTL", cacheTTL)
	collect(err)

	sampleRate := DefaultTracingSampleRate
	if k.Exists("tracing.sample_rate") {
		sampleRate = k.Float64("tracing.sample_rate")
	}
	sampleRate, err = getEnvFloatOrDefault("TRACING_SAMPLE_RATE", sampleRate, sampleRate)
	collect(err)

	attributes := k.Strings("attributes")
	if val := os.Getenv("ATTRIBUTES"); val != "" {
		attributes = splitList(val, ",")
	}
	if !k.Exists("attributes") && os.Getenv("ATTRIBUTES") == "" {
		attributes = preference.Attributes()
	}

	corsOrigins := k.Strings("cors_origins")
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		corsOrigins = splitList(val, ",")
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"PLACERANK_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		CORSOrigins:            corsOrigins,
		RecommendRateLimit:     rateLimit,
		RankingCalibrationPath: getEnvOrDefault("RANKING_CALIBRATION_PATH", k.String("ranking_calibration_path"), DefaultRankingCalibrationPath),
		MaxDistanceKm:          maxDistance,
		RankConcurrency:        concurrency,
		SortOnRounded:          getEnvBoolOrDefault("SORT_ON_ROUNDED", k.Bool("sort_on_rounded")),
		Attributes:             attributes,
		Embedder:               strings.ToLower(getEnvOrDefault("EMBEDDER", k.String("embedder"), DefaultEmbedder)),
		JinaAPIKey:             getEnvOrKoanf("JINA_API_KEY", k, "jina_api_key"),
		OllamaURL:              getEnvOrDefault("OLLAMA_URL", k.String("ollama_url"), DefaultOllamaURL),
		OllamaModel:            getEnvOrDefault("OLLAMA_MODEL", k.String("ollama_model"), DefaultOllamaModel),
		SentimentENURL:         getEnvOrKoanf("SENTIMENT_EN_URL", k, "sentiment_en_url"),
		SentimentARURL:         getEnvOrKoanf("SENTIMENT_AR_URL", k, "sentiment_ar_url"),
		SentimentAPIToken:      getEnvOrKoanf("SENTIMENT_API_TOKEN", k, "sentiment_api_token"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		ProfileCacheTTL:        cacheTTL,
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		Tracing: TracingConfig{
			Enabled:      getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing.enabled")),
			ExporterType: getEnvOrDefault("TRACING_EXPORTER_TYPE", k.String("tracing.exporter_type"), DefaultTracingExporter),
			OTLPEndpoint: getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing.otlp_endpoint"),
			SampleRate:   sampleRate,
			Insecure:     getEnvBoolOrDefault("TRACING_INSECURE", k.Bool("tracing.insecure")),
		},
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration (e.g. "6h") from the environment.
func getEnvDurationOrDefault(envKey string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(envKey)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
	}
	return d, nil
}

// getEnvBoolOrDefault accepts true/1/yes/on and false/0/no/off; anything else
// keeps the file value.
func getEnvBoolOrDefault(envKey string, koanfVal bool) bool {
	switch strings.ToLower(os.Getenv(envKey)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return koanfVal
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks configuration values for consistency.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.MaxDistanceKm <= 0 {
		errs = append(errs, ErrInvalidMaxDistance)
	}
	if c.RankConcurrency < 0 {
		errs = append(errs, ErrInvalidConcurrency)
	}
	if c.ProfileCacheTTL < 0 {
		errs = append(errs, ErrInvalidCacheTTL)
	}
	if c.RecommendRateLimit < 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	if len(c.Attributes) == 0 {
		errs = append(errs, ErrEmptyAttributes)
	}

	switch c.Embedder {
	case EmbedderKeyword:
	case EmbedderJina:
		if c.JinaAPIKey == "" {
			errs = append(errs, ErrMissingJinaAPIKey)
		}
	case EmbedderOllama:
		if c.OllamaURL == "" {
			errs = append(errs, ErrMissingOllamaURL)
		}
	default:
		errs = append(errs, ErrInvalidEmbedder)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	// Exporter settings only matter once tracing is on.
	if c.Tracing.Enabled {
		if c.Tracing.ExporterType != tracing.ExporterOTLPGRPC && c.Tracing.ExporterType != tracing.ExporterOTLPHTTP {
			errs = append(errs, ErrInvalidExporterType)
		}
		if c.Tracing.OTLPEndpoint == "" {
			errs = append(errs, ErrMissingTracingEndpoint)
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     strconv.Itoa(c.Port),
		"env":                      c.Env,
		"cors_origins":             strings.Join(c.CORSOrigins, ","),
		"recommend_rate_limit":     strconv.Itoa(c.RecommendRateLimit),
		"ranking_calibration_path": c.RankingCalibrationPath,
		"max_distance_km":          strconv.FormatFloat(c.MaxDistanceKm, 'f', -1, 64),
		"rank_concurrency":         strconv.Itoa(c.RankConcurrency),
		"sort_on_rounded":          strconv.FormatBool(c.SortOnRounded),
		"attributes":               strconv.Itoa(len(c.Attributes)),
		"embedder":                 c.Embedder,
		"jina_api_key":             maskSecret(c.JinaAPIKey),
		"ollama_url":               c.OllamaURL,
		"ollama_model":             c.OllamaModel,
		"sentiment_en_url":         c.SentimentENURL,
		"sentiment_ar_url":         c.SentimentARURL,
		"sentiment_api_token":      maskSecret(c.SentimentAPIToken),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"profile_cache_ttl":        c.ProfileCacheTTL.String(),
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"tracing_enabled":          strconv.FormatBool(c.Tracing.Enabled),
		"tracing_exporter_type":    c.Tracing.ExporterType,
		"tracing_otlp_endpoint":    c.Tracing.OTLPEndpoint,
		"tracing_sample_rate":      strconv.FormatFloat(c.Tracing.SampleRate, 'f', -1, 64),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL
// (postgres://, postgresql://, redis://).
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
