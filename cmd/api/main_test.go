package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/placerank/internal/api"
	"github.com/onnwee/placerank/internal/config"
	"github.com/onnwee/placerank/internal/preference"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               8080,
		Env:                "test",
		MaxDistanceKm:      config.DefaultMaxDistanceKm,
		RecommendRateLimit: 2,
		Attributes:         preference.Attributes(),
		Embedder:           config.EmbedderKeyword,
		ProfileCacheTTL:    time.Minute,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := newServices(t.Context(), cfg, logger, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServices() error = %v", err)
	}
	t.Cleanup(svc.Close)
	srv := httptest.NewServer(svc.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewServices_RecommendDemoCatalog(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body := `{"preferences":{"Quiet":1},"budget":1,"coords":[30.0609,31.2197]}`
	resp, err := http.Post(srv.URL+"/api/recommend", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/recommend: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got api.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 6 || len(got.Recommendations) != 6 {
		t.Fatalf("count = %d, want 6 demo places", got.Count)
	}
	for i := 1; i < len(got.Recommendations); i++ {
		prev, cur := got.Recommendations[i-1].ScoringDetails.FinalScore, got.Recommendations[i].ScoringDetails.FinalScore
		if cur > prev {
			t.Errorf("recommendations not descending at %d: %v > %v", i, cur, prev)
		}
	}
}

func TestNewServices_RateLimitsRecommend(t *testing.T) {
	srv := newTestServer(t, testConfig())

	var last int
	for range 3 {
		resp, err := http.Post(srv.URL+"/api/recommend", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("POST /api/recommend: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestNewServices_MetricsAndHealth(t *testing.T) {
	cfg := testConfig()
	cfg.RecommendRateLimit = 0
	srv := newTestServer(t, cfg)

	for _, path := range []string{"/health", "/ready", "/api/attributes", "/api/places"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "http_requests_total") {
		t.Error("/metrics does not expose http_requests_total")
	}
}

func TestNewServices_InvalidRedisURL(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "not-a-url://"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := newServices(t.Context(), cfg, logger, prometheus.NewRegistry()); err == nil {
		t.Fatal("newServices() with a bad redis url succeeded")
	}
}

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name        string
		embedder    string
		wantErr     bool
		wantChecker bool
	}{
		{"keyword", config.EmbedderKeyword, false, false},
		{"jina", config.EmbedderJina, false, false},
		{"ollama registers a readiness probe", config.EmbedderOllama, false, true},
		{"unknown", "word2vec", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Embedder = tt.embedder
			cfg.JinaAPIKey = "key"
			cfg.OllamaURL = config.DefaultOllamaURL
			cfg.OllamaModel = config.DefaultOllamaModel

			var hc api.HealthHandlersConfig
			e, err := newEmbedder(cfg, &hc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newEmbedder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e == nil {
				t.Error("newEmbedder() returned nil embedder")
			}
			if (hc.EmbedderChecker != nil) != tt.wantChecker {
				t.Errorf("EmbedderChecker set = %v, want %v", hc.EmbedderChecker != nil, tt.wantChecker)
			}
		})
	}
}

func TestNewSentimentAnalyzer_Lexicon(t *testing.T) {
	a := newSentimentAnalyzer(testConfig(), nil)
	scores, err := a.AnalyzeReviews(context.Background(), []string{"great coffee, lovely staff", "   "})
	if err != nil {
		t.Fatalf("AnalyzeReviews() error = %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}
	if scores[0] <= 0.5 {
		t.Errorf("positive review scored %v, want > 0.5", scores[0])
	}
	if scores[1] != 0.5 {
		t.Errorf("blank review scored %v, want 0.5", scores[1])
	}
}
