// Package sentiment scores reviews on a [0,1] scale, where 1 is positive,
// 0 is negative and 0.5 is neutral or unknown.
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Language codes returned by DetectLanguage.
const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
	LanguageUnknown = "unknown"
)

// Neutral is the score of blank reviews and reviews no model can read.
const Neutral = 0.5

// Analyzer scores review texts. The result has one score per input, in order.
type Analyzer interface {
	AnalyzeReviews(ctx context.Context, texts []string) ([]float64, error)
}

// Model classifies texts in a single language. It returns one score per text.
type Model interface {
	Classify(ctx context.Context, texts []string) ([]float64, error)
}

// DetectLanguage reports whether text is mostly Arabic (U+0600 to U+06FF) or
// mostly Latin letters. Ties, including text with neither, are unknown.
func DetectLanguage(text string) string {
	var arabic, english int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			english++
		}
	}
	switch {
	case arabic > english:
		return LanguageArabic
	case english > arabic:
		return LanguageEnglish
	default:
		return LanguageUnknown
	}
}

// Router dispatches each review to the model for its detected language.
type Router struct {
	models map[string]Model
	logger *slog.Logger
}

// NewRouter creates a Router over per-language models keyed by language code.
func NewRouter(models map[string]Model, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Model, len(models))
	for lang, model := range models {
		if model != nil {
			m[lang] = model
		}
	}
	return &Router{models: m, logger: logger}
}

// AnalyzeReviews implements Analyzer. Blank reviews and reviews in a language
// without a model score Neutral. With no models at all every review scores 0.
func (r *Router) AnalyzeReviews(ctx context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	if len(r.models) == 0 {
		r.logger.WarnContext(ctx, "no sentiment models configured, scoring reviews as 0", "reviews", len(texts))
		return scores, nil
	}

	byLang := make(map[string][]int)
	for i, text := range texts {
		scores[i] = Neutral
		if strings.TrimSpace(text) == "" {
			continue
		}
		lang := DetectLanguage(text)
		if _, ok := r.models[lang]; ok {
			byLang[lang] = append(byLang[lang], i)
		}
	}

	for lang, idx := range byLang {
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}
		out, err := r.models[lang].Classify(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("classify %s reviews: %w", lang, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("classify %s reviews: got %d scores for %d texts", lang, len(out), len(batch))
		}
		for j, i := range idx {
			scores[i] = out[j]
		}
	}
	return scores, nil
}
