package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// WeightSumTolerance is how far the weight total may drift from 1.
const WeightSumTolerance = 1e-9

// ErrInvalidWeights is returned when weights are negative or do not sum to 1.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights are the contribution of each sub-score to the final score.
type Weights struct {
	Sentiment  float64 `json:"sentiment"`  // default: 0.25
	Preference float64 `json:"preference"` // default: 0.30
	Proximity  float64 `json:"proximity"`  // default: 0.30
	Budget     float64 `json:"budget"`     // default: 0.15
}

// DefaultWeights returns the default weights.
//
// final = sentiment*0.25 + preference*0.30 + proximity*0.30 + budget*0.15
func DefaultWeights() *Weights {
	return &Weights{
		Sentiment:  0.25,
		Preference: 0.30,
		Proximity:  0.30,
		Budget:     0.15,
	}
}

// Sum returns the total of all weights.
func (w *Weights) Sum() float64 {
	return w.Sentiment + w.Preference + w.Proximity + w.Budget
}

// Validate reports an error wrapping ErrInvalidWeights if any weight is
// negative or the weights do not sum to 1 within WeightSumTolerance.
func (w *Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"sentiment", w.Sentiment},
		{"preference", w.Preference},
		{"proximity", w.Proximity},
		{"budget", w.Budget},
	}
	for _, n := range named {
		if n.value < 0 || math.IsNaN(n.value) {
			return fmt.Errorf("%w: %s weight is %v", ErrInvalidWeights, n.name, n.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// WeightOverrides holds the weights named in a calibration file.
// Absent fields keep their default value.
type WeightOverrides struct {
	Sentiment  *float64 `json:"sentiment,omitempty"`
	Preference *float64 `json:"preference,omitempty"`
	Proximity  *float64 `json:"proximity,omitempty"`
	Budget     *float64 `json:"budget,omitempty"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string          `json:"version"`
	Weights WeightOverrides `json:"weights"`
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// Fields present in the file override the defaults. An empty path yields the
// defaults. On any error, including merged weights that fail Validate, the
// defaults are returned together with the error.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibrated weights rejected, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration returns a copy of base with the present overrides applied.
// A nil base is treated as DefaultWeights.
func MergeCalibration(base *Weights, override *WeightOverrides) *Weights {
	if base == nil {
		base = DefaultWeights()
	}
	result := *base
	if override == nil {
		return &result
	}

	if override.Sentiment != nil {
		result.Sentiment = *override.Sentiment
	}
	if override.Preference != nil {
		result.Preference = *override.Preference
	}
	if override.Proximity != nil {
		result.Proximity = *override.Proximity
	}
	if override.Budget != nil {
		result.Budget = *override.Budget
	}
	return &result
}

func logCalibrationOverrides(defaults, loaded *Weights) {
	var overrides []string
	add := func(name string, from, to float64) {
		if from != to {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, from, to))
		}
	}
	add("sentiment", defaults.Sentiment, loaded.Sentiment)
	add("preference", defaults.Preference, loaded.Preference)
	add("proximity", defaults.Proximity, loaded.Proximity)
	add("budget", defaults.Budget, loaded.Budget)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
