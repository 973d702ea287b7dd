package ranking

import (
	"math"
	"testing"

	"github.com/onnwee/placerank/internal/geo"
	"github.com/onnwee/placerank/internal/place"
)

const epsilon = 1e-9

func float(v float64) *float64 { return &v }

func TestProximityScore(t *testing.T) {
	user := geo.NewPoint(30.0333, 31.2333)

	tests := []struct {
		name    string
		place   geo.Point
		maxKm   float64
		want    float64
		epsilon float64
	}{
		{"same point", user, 10, 1.0, epsilon},
		{"about 1.26 km", geo.NewPoint(30.0444, 31.2357), 10, 0.87443, 1e-5},
		{"just inside cutoff", geo.NewPoint(30.10, 31.30), 10, 0.01915, 1e-5},
		{"beyond cutoff", geo.NewPoint(30.15, 31.35), 10, 0, 0},
		{"other side of the world", geo.NewPoint(-30.0333, -148.7667), 10, 0, 0},
		{"larger cutoff", geo.NewPoint(30.10, 31.30), 20, 0.50957, 1e-5},
		{"zero cutoff uses default", geo.NewPoint(30.0444, 31.2357), 0, 0.87443, 1e-5},
		{"negative cutoff uses default", geo.NewPoint(30.0444, 31.2357), -5, 0.87443, 1e-5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProximityScore(user, tt.place, tt.maxKm)
			if math.Abs(got-tt.want) > tt.epsilon {
				t.Errorf("ProximityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProximityScore_Monotonic(t *testing.T) {
	user := geo.NewPoint(0, 0)
	prev := ProximityScore(user, user, DefaultMaxDistanceKm)
	if prev != 1 {
		t.Fatalf("score at distance 0 = %v, want 1", prev)
	}

	// 0.005 degrees of latitude is about 0.556 km, so 17 steps stay under 10 km.
	for i := 1; i <= 17; i++ {
		p := geo.NewPoint(float64(i)*0.005, 0)
		got := ProximityScore(user, p, DefaultMaxDistanceKm)
		if got >= prev {
			t.Fatalf("score not strictly decreasing at step %d: %v >= %v", i, got, prev)
		}
		prev = got
	}

	for _, lat := range []float64{0.0900, 0.1, 1, 45} {
		if got := ProximityScore(user, geo.NewPoint(lat, 0), DefaultMaxDistanceKm); got != 0 {
			t.Errorf("score at %v degrees = %v, want 0", lat, got)
		}
	}
}

func TestBudgetScore(t *testing.T) {
	tests := []struct {
		user, place place.BudgetLevel
		want        float64
	}{
		{0, 0, 1},
		{2, 2, 1},
		{2, 1, 2.0 / 3},
		{2, 0, 1.0 / 3},
		{0, 3, 0},
		{3, 0, 0},
		{1, 3, 1.0 / 3},
		{-1, 0, 1},
		{5, 3, 1},
	}

	for _, tt := range tests {
		got := BudgetScore(tt.user, tt.place)
		if math.Abs(got-tt.want) > epsilon {
			t.Errorf("BudgetScore(%d, %d) = %v, want %v", tt.user, tt.place, got, tt.want)
		}
	}
}

func TestBudgetScore_Symmetric(t *testing.T) {
	for a := place.BudgetInexpensive; a <= place.MaxBudgetLevel; a++ {
		if got := BudgetScore(a, a); got != 1 {
			t.Errorf("BudgetScore(%d, %d) = %v, want 1", a, a, got)
		}
		for b := place.BudgetInexpensive; b <= place.MaxBudgetLevel; b++ {
			if BudgetScore(a, b) != BudgetScore(b, a) {
				t.Errorf("BudgetScore(%d, %d) != BudgetScore(%d, %d)", a, b, b, a)
			}
			if s := BudgetScore(a, b); s < 0 || s > 1 {
				t.Errorf("BudgetScore(%d, %d) = %v, out of [0,1]", a, b, s)
			}
		}
	}
}

func TestAggregateSentiment(t *testing.T) {
	tests := []struct {
		name    string
		reviews []place.ScoredReview
		want    float64
	}{
		{"no reviews", nil, 0.5},
		{"empty slice", []place.ScoredReview{}, 0.5},
		{"single", []place.ScoredReview{{SentimentScore: float(1)}}, 1},
		{"mean", []place.ScoredReview{{SentimentScore: float(0.8)}, {SentimentScore: float(0.9)}}, 0.85},
		{"binary labels", []place.ScoredReview{{SentimentScore: float(1)}, {SentimentScore: float(0)}, {SentimentScore: float(1)}}, 2.0 / 3},
		{"missing score counts as neutral", []place.ScoredReview{{SentimentScore: float(1)}, {Text: "unscored"}}, 0.75},
		{"all missing", []place.ScoredReview{{}, {}}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateSentiment(tt.reviews)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("AggregateSentiment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		in   SubScores
		want Breakdown
	}{
		{
			name: "all ones",
			in:   SubScores{1, 1, 1, 1},
			want: Breakdown{FinalScore: 1, SentimentScore: 1, PreferenceScore: 1, ProximityScore: 1, BudgetScore: 1},
		},
		{
			name: "all zeros",
			in:   SubScores{},
			want: Breakdown{},
		},
		{
			name: "only sentiment",
			in:   SubScores{Sentiment: 1},
			want: Breakdown{FinalScore: 0.25, SentimentScore: 1},
		},
		{
			name: "rounded to four decimals",
			in:   SubScores{Sentiment: 0.85, Preference: 0, Proximity: 0.8744301455302361, Budget: 1},
			want: Breakdown{FinalScore: 0.6248, SentimentScore: 0.85, ProximityScore: 0.8744, BudgetScore: 1},
		},
		{
			name: "thirds",
			in:   SubScores{Sentiment: 2.0 / 3, Preference: 1.0 / 3, Proximity: 0.5, Budget: 1.0 / 3},
			want: Breakdown{FinalScore: 0.4667, SentimentScore: 0.6667, PreferenceScore: 0.3333, ProximityScore: 0.5, BudgetScore: 0.3333},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.in, nil)
			if got.Breakdown != tt.want {
				t.Errorf("Combine() = %+v, want %+v", got.Breakdown, tt.want)
			}
		})
	}
}

func TestCombine_KeepsRawFinal(t *testing.T) {
	in := SubScores{Sentiment: 1.0 / 3, Preference: 1.0 / 3, Proximity: 1.0 / 3, Budget: 1.0 / 3}
	got := Combine(in, DefaultWeights())

	if math.Abs(got.RawFinal-1.0/3) > epsilon {
		t.Errorf("RawFinal = %v, want 1/3", got.RawFinal)
	}
	if got.Breakdown.FinalScore != 0.3333 {
		t.Errorf("FinalScore = %v, want 0.3333", got.Breakdown.FinalScore)
	}
}

func TestCombine_CustomWeights(t *testing.T) {
	w := &Weights{Sentiment: 0, Preference: 1, Proximity: 0, Budget: 0}
	got := Combine(SubScores{Sentiment: 1, Preference: 0.42, Proximity: 1, Budget: 1}, w)
	if got.Breakdown.FinalScore != 0.42 {
		t.Errorf("FinalScore = %v, want 0.42", got.Breakdown.FinalScore)
	}
}

func TestCombine_Bounds(t *testing.T) {
	values := []float64{0, 0.1, 1.0 / 3, 0.5, 0.9999, 1}
	for _, s := range values {
		for _, p := range values {
			for _, x := range values {
				for _, b := range values {
					got := Combine(SubScores{s, p, x, b}, nil)
					if got.RawFinal < 0 || got.RawFinal > 1+epsilon {
						t.Fatalf("RawFinal(%v,%v,%v,%v) = %v, out of [0,1]", s, p, x, b, got.RawFinal)
					}
					if got.Breakdown.FinalScore < 0 || got.Breakdown.FinalScore > 1 {
						t.Fatalf("FinalScore(%v,%v,%v,%v) = %v, out of [0,1]", s, p, x, b, got.Breakdown.FinalScore)
					}
				}
			}
		}
	}
}

func TestRound4(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.12344, 0.1234},
		{0.12346, 0.1235},
		{0.99996, 1},
		{1.0 / 3, 0.3333},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round4(tt.in); got != tt.want {
			t.Errorf("Round4(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
