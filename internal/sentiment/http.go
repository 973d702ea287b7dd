package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/onnwee/placerank/internal/breaker"
	"github.com/onnwee/placerank/internal/tracing"
)

// PositiveLabel is the classifier label for a positive review.
const PositiveLabel = "LABEL_1"

// HTTPModel classifies texts with a remote text-classification endpoint.
// The endpoint receives {"inputs": [...]} and answers with one
// {"label", "score"} object per input. PositiveLabel maps to 1, any other
// label to 0.
type HTTPModel struct {
	name     string
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *breaker.Breaker[[]float64]
}

type classifyRequest struct {
	Inputs []string `json:"inputs"`
}

type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewHTTPModel creates a model for the endpoint. name identifies it in
// traces and breaker logs; token is sent as a bearer token when set.
func NewHTTPModel(name, endpoint, token string) *HTTPModel {
	return &HTTPModel{
		name:     name,
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		breaker:  breaker.New[[]float64]("sentiment-"+name, breaker.DefaultConfig),
	}
}

// Classify implements Model.
func (m *HTTPModel) Classify(ctx context.Context, texts []string) (scores []float64, err error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, endSpan := tracing.StartClientSpan(ctx, "sentiment-"+m.name, "classify")
	defer func() { endSpan(err) }()

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("sentiment: rate limiter wait failed: %w", err)
	}

	return m.breaker.Execute(func() ([]float64, error) {
		return m.post(ctx, texts)
	})
}

func (m *HTTPModel) post(ctx context.Context, texts []string) ([]float64, error) {
	body, err := json.Marshal(classifyRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("sentiment: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sentiment: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sentiment: request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sentiment: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sentiment: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentiment: %s returned status %d: %s", m.name, resp.StatusCode, string(data))
	}

	var out []classification
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("sentiment: failed to parse response: %w", err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("sentiment: %s returned %d labels for %d texts", m.name, len(out), len(texts))
	}

	scores := make([]float64, len(out))
	for i, c := range out {
		if c.Label == PositiveLabel {
			scores[i] = 1
		}
	}
	return scores, nil
}
