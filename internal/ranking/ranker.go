package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/placerank/internal/place"
	"github.com/onnwee/placerank/internal/preference"
	"github.com/onnwee/placerank/internal/tracing"
)

// ErrCollaborator wraps every sentiment or preference failure returned by Rank.
var ErrCollaborator = errors.New("collaborator failure")

// SentimentAnalyzer scores review texts, one score in [0, 1] per text.
type SentimentAnalyzer interface {
	AnalyzeReviews(ctx context.Context, texts []string) ([]float64, error)
}

// PreferenceScorer builds place profiles and matches them to user preferences.
type PreferenceScorer interface {
	ProfileForPlace(ctx context.Context, texts []string) (preference.Profile, error)
	Similarity(prefs map[string]float64, profile preference.Profile) float64
}

// Result is one ranked place with its score breakdown.
type Result struct {
	Place     place.Place `json:"place"`
	Breakdown Breakdown   `json:"scores"`

	raw float64
}

// Options configure a Ranker. Zero values select the defaults.
type Options struct {
	Weights       *Weights // default: DefaultWeights
	MaxDistanceKm float64  // default: DefaultMaxDistanceKm
	Concurrency   int      // places scored at once; default: runtime.NumCPU
	// SortOnRounded orders by the rounded final score instead of the exact
	// one. Places whose rounded scores tie then keep their input order.
	SortOnRounded bool
	Metrics       *Metrics
	Logger        *slog.Logger
}

// Ranker scores candidate places for a user and orders them best first.
// It is safe for concurrent use.
type Ranker struct {
	sentiment  SentimentAnalyzer
	preference PreferenceScorer
	weights    Weights
	opts       Options
	logger     *slog.Logger
}

// NewRanker creates a Ranker. It fails if the weights do not validate.
func NewRanker(sentiment SentimentAnalyzer, pref PreferenceScorer, opts Options) (*Ranker, error) {
	if sentiment == nil || pref == nil {
		return nil, errors.New("ranking: sentiment analyzer and preference scorer are required")
	}
	w := DefaultWeights()
	if opts.Weights != nil {
		w = opts.Weights
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxDistanceKm <= 0 {
		opts.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		sentiment:  sentiment,
		preference: pref,
		weights:    *w,
		opts:       opts,
		logger:     logger,
	}, nil
}

// Weights returns a copy of the weights in use.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank scores every place and returns them ordered by final score, highest
// first. Equal scores keep their input order. Inputs are not modified.
//
// Any collaborator failure fails the whole call with an error wrapping
// ErrCollaborator; remaining work is cancelled and no partial result is
// returned.
func (r *Ranker) Rank(ctx context.Context, user place.UserProfile, places []place.Place) (results []Result, err error) {
	start := time.Now()
	ctx, endSpan := tracing.StartSpan(ctx, "ranking.Rank",
		attribute.Int("places", len(places)),
		attribute.Bool("sort_on_rounded", r.opts.SortOnRounded),
	)
	defer func() {
		endSpan(err)
		r.opts.Metrics.observeRankDuration(time.Since(start).Seconds())
	}()
	r.opts.Metrics.incRankRequests()

	results = make([]Result, len(places))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i := range places {
		g.Go(func() error {
			res, err := r.Score(gctx, user, places[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.WarnContext(ctx, "ranking failed", "places", len(places), "error", err)
		return nil, err
	}
	r.opts.Metrics.addPlacesScored(len(results))

	key := func(res Result) float64 { return res.raw }
	if r.opts.SortOnRounded {
		key = func(res Result) float64 { return res.Breakdown.FinalScore }
	}
	sort.SliceStable(results, func(a, b int) bool {
		return key(results[a]) > key(results[b])
	})

	r.logger.DebugContext(ctx, "ranked places",
		"places", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

// Score computes the breakdown of a single place for user.
func (r *Ranker) Score(ctx context.Context, user place.UserProfile, p place.Place) (Result, error) {
	texts := p.ReviewTexts()

	sentiment, err := r.sentimentScore(ctx, texts)
	if err != nil {
		r.countFailure(ctx, CollaboratorSentiment)
		return Result{}, fmt.Errorf("%w: sentiment for place %q (%s): %w", ErrCollaborator, p.Name, p.ID, err)
	}

	profile, err := r.preference.ProfileForPlace(ctx, texts)
	if err != nil {
		r.countFailure(ctx, CollaboratorPreference)
		return Result{}, fmt.Errorf("%w: preference profile for place %q (%s): %w", ErrCollaborator, p.Name, p.ID, err)
	}

	scored := Combine(SubScores{
		Sentiment:  sentiment,
		Preference: r.preference.Similarity(user.Preferences, profile),
		Proximity:  ProximityScore(user.Location, p.Location, r.opts.MaxDistanceKm),
		Budget:     BudgetScore(user.Budget, p.Budget),
	}, &r.weights)

	return Result{
		Place:     p.Clone(),
		Breakdown: scored.Breakdown,
		raw:       scored.RawFinal,
	}, nil
}

// countFailure records a collaborator failure unless ctx was already done,
// which is the case for every place cancelled after the first failure.
func (r *Ranker) countFailure(ctx context.Context, collaborator string) {
	if ctx.Err() == nil {
		r.opts.Metrics.incCollaboratorErrors(collaborator)
	}
}

func (r *Ranker) sentimentScore(ctx context.Context, texts []string) (float64, error) {
	scores, err := r.sentiment.AnalyzeReviews(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(scores) != len(texts) {
		return 0, fmt.Errorf("analyzer returned %d scores for %d reviews", len(scores), len(texts))
	}
	reviews := make([]place.ScoredReview, len(texts))
	for i := range texts {
		reviews[i] = place.ScoredReview{Text: texts[i], SentimentScore: &scores[i]}
	}
	return AggregateSentiment(reviews), nil
}
