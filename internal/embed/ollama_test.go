package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaAvailable(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		status int
		want   bool
	}{
		{"exact match", "mxbai-embed-large", http.StatusOK, true},
		{"latest tag", "nomic-embed-text", http.StatusOK, true},
		{"missing model", "other", http.StatusOK, false},
		{"server error", "mxbai-embed-large", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"models":[{"name":"mxbai-embed-large"},{"name":"nomic-embed-text:latest"}]}`))
			}))
			defer server.Close()

			e := NewOllamaEmbedder(server.URL+"/", tt.model)
			if got := e.Available(context.Background()); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOllamaEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != DefaultOllamaModel {
			t.Errorf("model = %q, want %q", req.Model, DefaultOllamaModel)
		}
		resp := ollamaEmbedResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "")
	vecs, err := e.EmbedBatch(context.Background(), []string{"quiet", "cozy"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Errorf("EmbedBatch() = %v", vecs)
	}

	v, err := e.Embed(context.Background(), "quiet")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(v) != 2 {
		t.Errorf("Embed() = %v", v)
	}
}

func TestOllamaEmbed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `model not loaded`},
		{"count mismatch", http.StatusOK, `{"embeddings":[]}`},
		{"malformed", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			if _, err := NewOllamaEmbedder(server.URL, "m").Embed(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
