package ranking

import (
	"math"

	"github.com/onnwee/placerank/internal/geo"
	"github.com/onnwee/placerank/internal/place"
)

// DefaultMaxDistanceKm is the distance at which proximity reaches 0.
const DefaultMaxDistanceKm = 10.0

// MaxBudgetDiff is the largest possible difference between two budget levels.
const MaxBudgetDiff = float64(place.MaxBudgetLevel - place.BudgetInexpensive)

// NeutralSentiment is the sentiment of a place without reviews, and of any
// review that was never scored.
const NeutralSentiment = 0.5

// ProximityScore maps the great-circle distance between user and p to [0, 1]:
// 1 at the same point, decaying linearly to 0 at maxDistanceKm and beyond.
// A non-positive maxDistanceKm selects DefaultMaxDistanceKm.
func ProximityScore(user, p geo.Point, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}
	d := user.DistanceKm(p)
	if d > maxDistanceKm {
		return 0
	}
	return 1 - d/maxDistanceKm
}

// BudgetScore is 1 for matching budget levels and drops by 1/3 per level of
// difference. Levels outside [0, MaxBudgetLevel] are clamped into range first.
func BudgetScore(user, p place.BudgetLevel) float64 {
	diff := math.Abs(float64(clampBudget(user) - clampBudget(p)))
	return 1 - diff/MaxBudgetDiff
}

func clampBudget(b place.BudgetLevel) place.BudgetLevel {
	switch {
	case b < place.BudgetInexpensive:
		return place.BudgetInexpensive
	case b > place.MaxBudgetLevel:
		return place.MaxBudgetLevel
	default:
		return b
	}
}

// AggregateSentiment is the mean review sentiment. An empty slice yields
// NeutralSentiment, as does each review with no score.
func AggregateSentiment(reviews []place.ScoredReview) float64 {
	if len(reviews) == 0 {
		return NeutralSentiment
	}
	var sum float64
	for _, r := range reviews {
		if r.SentimentScore == nil {
			sum += NeutralSentiment
			continue
		}
		sum += *r.SentimentScore
	}
	return sum / float64(len(reviews))
}

// SubScores are the four independent components of a place's score, each in [0, 1].
type SubScores struct {
	Sentiment  float64
	Preference float64
	Proximity  float64
	Budget     float64
}

// Breakdown is the presented score of a place. Every field is rounded to 4 decimals.
type Breakdown struct {
	FinalScore      float64 `json:"final_score"`
	SentimentScore  float64 `json:"sentiment_score"`
	PreferenceScore float64 `json:"preference_score"`
	ProximityScore  float64 `json:"proximity_score"`
	BudgetScore     float64 `json:"budget_score"`
}

// Scored pairs the rounded breakdown with the unrounded final score.
type Scored struct {
	Breakdown Breakdown
	RawFinal  float64
}

// Combine computes the weighted final score. A nil w selects DefaultWeights.
func Combine(s SubScores, w *Weights) Scored {
	if w == nil {
		w = DefaultWeights()
	}
	final := s.Sentiment*w.Sentiment +
		s.Preference*w.Preference +
		s.Proximity*w.Proximity +
		s.Budget*w.Budget

	return Scored{
		Breakdown: Breakdown{
			FinalScore:      Round4(final),
			SentimentScore:  Round4(s.Sentiment),
			PreferenceScore: Round4(s.Preference),
			ProximityScore:  Round4(s.Proximity),
			BudgetScore:     Round4(s.Budget),
		},
		RawFinal: final,
	}
}

// Round4 rounds v to 4 decimal places, halves away from zero.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
