package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/placerank/internal/breaker"
	"github.com/onnwee/placerank/internal/tracing"
)

const (
	// DefaultJinaModel is used when no model is configured.
	DefaultJinaModel = "jina-embeddings-v3"

	jinaEndpoint  = "https://api.jina.ai/v1/embeddings"
	jinaChunkSize = 25
	jinaMaxRetry  = 3
)

// JinaEmbedder generates embeddings via the Jina AI API.
type JinaEmbedder struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *breaker.Breaker[*jinaEmbedResponse]
	backoffs []time.Duration
}

type jinaEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Task       string   `json:"task"`
	Dimensions int      `json:"dimensions"`
	Truncate   bool     `json:"truncate"`
}

type jinaEmbedResponse struct {
	Data []jinaEmbedding `json:"data"`
}

type jinaEmbedding struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// NewJinaEmbedder creates a JinaEmbedder. An empty model selects DefaultJinaModel.
func NewJinaEmbedder(apiKey, model string) *JinaEmbedder {
	if model == "" {
		model = DefaultJinaModel
	}
	return &JinaEmbedder{
		apiKey:   apiKey,
		model:    model,
		endpoint: jinaEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(750*time.Millisecond), 1), // ~80 RPM
		breaker:  breaker.New[*jinaEmbedResponse]("jina", breaker.DefaultConfig),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// Embed generates a passage embedding for text.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: jina returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch embeds texts in chunks, placing each vector by its response index.
func (e *JinaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += jinaChunkSize {
		end := min(start+jinaChunkSize, len(texts))
		chunk := texts[start:end]

		resp, err := e.embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed: batch chunk starting at %d failed: %w", start, err)
		}
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(chunk) {
				return nil, fmt.Errorf("embed: jina returned out-of-range index %d for chunk of size %d", item.Index, len(chunk))
			}
			results[start+item.Index] = item.Embedding
		}
	}

	for i, r := range results {
		if r == nil {
			return nil, fmt.Errorf("embed: missing embedding for index %d", i)
		}
	}
	return results, nil
}

func (e *JinaEmbedder) embed(ctx context.Context, input []string) (resp *jinaEmbedResponse, err error) {
	ctx, endSpan := tracing.StartClientSpan(ctx, "jina", "embed")
	defer func() { endSpan(err) }()

	body, err := json.Marshal(jinaEmbedRequest{
		Model:      e.model,
		Input:      input,
		Task:       "retrieval.passage",
		Dimensions: 1024,
		Truncate:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: failed to marshal request: %w", err)
	}

	return e.breaker.Execute(func() (*jinaEmbedResponse, error) {
		return e.doWithRetry(ctx, body)
	})
}

// doWithRetry retries on 429, 5xx and malformed bodies, honoring Retry-After.
func (e *JinaEmbedder) doWithRetry(ctx context.Context, reqBody []byte) (*jinaEmbedResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= jinaMaxRetry; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embed: rate limiter wait failed: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("embed: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("embed: request cancelled: %w", ctx.Err())
			}
			return nil, fmt.Errorf("embed: request failed: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("embed: failed to read response: %w", err)
		}

		var delay time.Duration
		if attempt < len(e.backoffs) {
			delay = e.backoffs[attempt]
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var out jinaEmbedResponse
			if err := json.Unmarshal(body, &out); err == nil {
				return &out, nil
			}
			lastErr = fmt.Errorf("embed: failed to parse response: %w", err)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("embed: jina returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode == http.StatusTooManyRequests {
				if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
					delay = min(time.Duration(seconds)*time.Second, 30*time.Second)
				}
			}
		default:
			return nil, fmt.Errorf("embed: jina returned status %d: %s", resp.StatusCode, string(body))
		}

		if attempt == jinaMaxRetry {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("embed: request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("embed: all retries exhausted: %w", lastErr)
}
