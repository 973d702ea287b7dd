// Package place provides the candidate place and user profile models consumed
// by the ranking engine, plus catalog storage for candidate places.
package place

import (
	"strings"

	"github.com/onnwee/placerank/internal/geo"
)

// BudgetLevel is an ordinal price tier from 0 (inexpensive) to 3 (very expensive).
type BudgetLevel int

// Budget tiers.
const (
	BudgetInexpensive BudgetLevel = iota
	BudgetModerate
	BudgetExpensive
	BudgetVeryExpensive
)

// MaxBudgetLevel is the highest budget tier.
const MaxBudgetLevel = BudgetVeryExpensive

// Valid reports whether b is within [0, MaxBudgetLevel].
func (b BudgetLevel) Valid() bool {
	return b >= BudgetInexpensive && b <= MaxBudgetLevel
}

// Review is a single raw review of a place.
type Review struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"` // Optional hint, e.g. "en" or "ar"
}

// ScoredReview is a review with the score a sentiment analyzer assigned it.
// A nil SentimentScore means the review was never scored.
type ScoredReview struct {
	Text           string   `json:"text"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// Place is a candidate for ranking. Its identity fields are opaque to the
// ranking engine.
type Place struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Address  string      `json:"address,omitempty"`
	Reviews  []Review    `json:"reviews,omitempty"`
	Budget   BudgetLevel `json:"budget"`
	Location geo.Point   `json:"location"`
}

// ReviewTexts returns the raw text of every review, in order.
func (p Place) ReviewTexts() []string {
	texts := make([]string, len(p.Reviews))
	for i, r := range p.Reviews {
		texts[i] = r.Text
	}
	return texts
}

// Clone returns a deep copy of p.
func (p Place) Clone() Place {
	c := p
	if p.Reviews != nil {
		c.Reviews = make([]Review, len(p.Reviews))
		copy(c.Reviews, p.Reviews)
	}
	return c
}

// UserProfile describes who the places are ranked for.
// Preference weights need not sum to 1.
type UserProfile struct {
	Preferences map[string]float64 `json:"preferences"`
	Budget      BudgetLevel        `json:"budget"`
	Location    geo.Point          `json:"location"`
}

// NormalizePreferences returns a copy of prefs scaled so the weights sum to 1.
// Labels are trimmed; empty labels are dropped. If the total weight is not
// positive the weights are copied unchanged.
func NormalizePreferences(prefs map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prefs))
	var total float64
	for label, w := range prefs {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		out[label] += w
		total += w
	}
	if total <= 0 {
		return out
	}
	for label, w := range out {
		out[label] = w / total
	}
	return out
}
