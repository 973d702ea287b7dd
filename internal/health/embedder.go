package health

import (
	"context"
	"errors"
)

// ErrEmbedderUnavailable is returned when the embedding backend does not
// serve the configured model.
var ErrEmbedderUnavailable = errors.New("embedding model unavailable")

// Prober reports whether a remote backend can serve requests.
// embed.OllamaEmbedder satisfies it.
type Prober interface {
	Available(ctx context.Context) bool
}

// EmbedderChecker checks that the embedding backend is reachable and has
// the configured model loaded.
type EmbedderChecker struct {
	prober Prober
}

// NewEmbedderChecker creates a checker for p.
func NewEmbedderChecker(p Prober) *EmbedderChecker {
	return &EmbedderChecker{prober: p}
}

// HealthCheck returns ErrEmbedderUnavailable when the probe fails.
func (e *EmbedderChecker) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.prober.Available(ctx) {
		return ErrEmbedderUnavailable
	}
	return nil
}
