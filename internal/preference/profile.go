// Package preference scores how well a place's reviews match a user's
// attribute preferences.
//
// A place profile maps each attribute of the vocabulary to a score in [0,1]
// describing how strongly the place's reviews express it. The profile is
// compared against the user's preference weights with Similarity.
package preference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/onnwee/placerank/internal/embed"
)

// ErrEmptyVocabulary is returned when a Scorer is built without attributes.
var ErrEmptyVocabulary = errors.New("attribute vocabulary cannot be empty")

// Profile maps attribute labels to scores in [0,1].
type Profile map[string]float64

// ZeroProfile returns a profile with every attribute scored 0.
func ZeroProfile(attributes []string) Profile {
	p := make(Profile, len(attributes))
	for _, a := range attributes {
		p[a] = 0
	}
	return p
}

// Scorer builds place profiles by embedding reviews and comparing them with
// the embedded attribute vocabulary.
type Scorer struct {
	embedder   embed.Embedder
	attributes []string

	mu      sync.Mutex
	vectors [][]float32 // attribute embeddings, set by Init
}

// NewScorer creates a Scorer over the given vocabulary.
func NewScorer(embedder embed.Embedder, attributes []string) (*Scorer, error) {
	if len(attributes) == 0 {
		return nil, ErrEmptyVocabulary
	}
	attrs := make([]string, len(attributes))
	copy(attrs, attributes)
	return &Scorer{embedder: embedder, attributes: attrs}, nil
}

// Attributes returns a copy of the scorer's vocabulary.
func (s *Scorer) Attributes() []string {
	out := make([]string, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Init embeds the vocabulary. It is safe to call more than once; only the
// first successful call reaches the embedder.
func (s *Scorer) Init(ctx context.Context) error {
	_, err := s.attributeVectors(ctx)
	return err
}

func (s *Scorer) attributeVectors(ctx context.Context) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectors != nil {
		return s.vectors, nil
	}
	vecs, err := embed.EmbedAll(ctx, s.embedder, s.attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to embed attributes: %w", err)
	}
	if len(vecs) != len(s.attributes) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d attributes", len(vecs), len(s.attributes))
	}
	s.vectors = vecs
	return vecs, nil
}

// ProfileForPlace scores each attribute as the mean cosine similarity between
// the attribute and every non-blank review. Negative similarities count as 0.
// With no usable review the zero profile is returned.
func (s *Scorer) ProfileForPlace(ctx context.Context, texts []string) (Profile, error) {
	attrVecs, err := s.attributeVectors(ctx)
	if err != nil {
		return nil, err
	}

	usable := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			usable = append(usable, t)
		}
	}
	profile := ZeroProfile(s.attributes)
	if len(usable) == 0 {
		return profile, nil
	}

	reviewVecs, err := embed.EmbedAll(ctx, s.embedder, usable)
	if err != nil {
		return nil, fmt.Errorf("failed to embed reviews: %w", err)
	}
	if len(reviewVecs) != len(usable) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d reviews", len(reviewVecs), len(usable))
	}

	n := float64(len(reviewVecs))
	for i, attr := range s.attributes {
		var sum float64
		for _, rv := range reviewVecs {
			sum += clamp01(embed.CosineSimilarity(rv, attrVecs[i]))
		}
		profile[attr] = sum / n
	}
	return profile, nil
}

// Similarity returns the preference match score of profile for prefs.
func (s *Scorer) Similarity(prefs map[string]float64, profile Profile) float64 {
	return Similarity(prefs, profile)
}

// Similarity is the mean of profile scores weighted by prefs. Weights are
// normalized by their positive total, so they need not sum to 1. Labels the
// profile lacks score 0 and non-positive weights are ignored. Returns 0 when
// no weight is positive.
func Similarity(prefs map[string]float64, profile Profile) float64 {
	var total, weighted float64
	for label, w := range prefs {
		if w <= 0 {
			continue
		}
		total += w
		weighted += w * clamp01(profile[label])
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
