// Package main ranks the demo catalog for a user from the command line.
// It runs offline with the lexicon sentiment model and the keyword embedder.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/onnwee/placerank/internal/geo"
	"github.com/onnwee/placerank/internal/middleware"
	"github.com/onnwee/placerank/internal/place"
	"github.com/onnwee/placerank/internal/preference"
	"github.com/onnwee/placerank/internal/ranking"
	"github.com/onnwee/placerank/internal/sentiment"
)

// Demo user: mid-range budget in central Cairo who likes lively, trendy places.
const (
	defaultPrefs  = "Lively=0.6,Trendy=0.4"
	defaultBudget = int(place.BudgetExpensive)
	defaultLat    = 30.033333
	defaultLng    = 31.233334
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "rank:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(out)
	prefs := fs.String("prefs", defaultPrefs, "comma-separated attribute=weight pairs")
	budget := fs.Int("budget", defaultBudget, "budget level 0 (cheap) to 3 (very expensive)")
	lat := fs.Float64("lat", defaultLat, "user latitude")
	lng := fs.Float64("lng", defaultLng, "user longitude")
	maxKm := fs.Float64("max-distance", ranking.DefaultMaxDistanceKm, "distance in km at which proximity drops to 0")
	calibration := fs.String("calibration", "", "path to a JSON ranking weights file")
	details := fs.Bool("details", false, "print the score breakdown of each place")
	verbose := fs.Bool("v", false, "log ranking activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	preferences, err := parsePreferences(*prefs)
	if err != nil {
		return err
	}
	if !place.BudgetLevel(*budget).Valid() {
		return fmt.Errorf("budget must be between 0 and %d, got %d", place.MaxBudgetLevel, *budget)
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = middleware.NewLogger("development")
	}

	weights, err := ranking.LoadCalibration(*calibration)
	if err != nil {
		return err
	}

	attrs := preference.Attributes()
	scorer, err := preference.NewScorer(preference.NewKeywordEmbedder(attrs, preference.DefaultKeywords), attrs)
	if err != nil {
		return err
	}
	ranker, err := ranking.NewRanker(sentiment.NewLexiconAnalyzer(), scorer, ranking.Options{
		Weights:       weights,
		MaxDistanceKm: *maxKm,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	user := place.UserProfile{
		Preferences: place.NormalizePreferences(preferences),
		Budget:      place.BudgetLevel(*budget),
		Location:    geo.NewPoint(*lat, *lng),
	}
	results, err := ranker.Rank(ctx, user, place.DemoPlaces())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "--- Top Recommendations ---")
	for i, res := range results {
		fmt.Fprintf(out, "%d. %s (Score: %.4f)\n", i+1, res.Place.Name, res.Breakdown.FinalScore)
		if *details {
			b := res.Breakdown
			fmt.Fprintf(out, "   sentiment=%.4f preference=%.4f proximity=%.4f budget=%.4f\n",
				b.SentimentScore, b.PreferenceScore, b.ProximityScore, b.BudgetScore)
		}
	}
	return nil
}

// parsePreferences reads "Quiet=3,Cozy=1" into a weight map.
func parsePreferences(s string) (map[string]float64, error) {
	prefs := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("preference %q is not attribute=weight", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("preference %q has an invalid weight", pair)
		}
		prefs[strings.TrimSpace(name)] = w
	}
	return prefs, nil
}
