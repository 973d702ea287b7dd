// Package ranking scores candidate places for a user and orders them.
//
// Each place receives four sub-scores in [0, 1]:
//
//   - sentiment: mean of the per-review scores from a SentimentAnalyzer,
//     0.5 when the place has no reviews
//   - preference: match between the user's attribute weights and the place
//     profile built by a PreferenceScorer
//   - proximity: linear decay of the haversine distance, 0 beyond the cutoff
//   - budget: 1 - |user - place| / 3
//
// Combine merges them with Weights into a final score. The default weights
// are 0.25, 0.30, 0.30 and 0.15 respectively.
//
// Basic Usage:
//
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		logger.Warn("using default weights", "error", err)
//	}
//
//	ranker, err := ranking.NewRanker(analyzer, scorer, ranking.Options{Weights: weights})
//	if err != nil {
//		return err
//	}
//	results, err := ranker.Rank(ctx, user, places)
//
// Ordering:
//
// Results are ordered by the exact final score with a stable sort, so places
// with equal scores keep their input order. Presented scores are rounded to 4
// decimals; set Options.SortOnRounded to order by the rounded values instead.
//
// Calibration:
//
// Weights can be tuned per deployment through a JSON calibration file loaded
// at startup. See configs/ranking.calibration.json for the defaults.
package ranking
