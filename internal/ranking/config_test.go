package ranking

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeCalibration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}
	return path
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.Sentiment != 0.25 || w.Preference != 0.30 || w.Proximity != 0.30 || w.Budget != 0.15 {
		t.Errorf("unexpected defaults: %+v", w)
	}
	if w.Sum() != 1.0 {
		t.Errorf("default weights sum to %v, want exactly 1", w.Sum())
	}
	if err := w.Validate(); err != nil {
		t.Errorf("default weights invalid: %v", err)
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"defaults", *DefaultWeights(), false},
		{"all on one", Weights{Preference: 1}, false},
		{"even split", Weights{0.25, 0.25, 0.25, 0.25}, false},
		{"within tolerance", Weights{0.25, 0.25, 0.25, 0.25 + 1e-12}, false},
		{"sum too low", Weights{0.25, 0.25, 0.25, 0.2}, true},
		{"sum too high", Weights{0.5, 0.5, 0.5, 0}, true},
		{"negative weight", Weights{-0.25, 0.5, 0.5, 0.25}, true},
		{"all zero", Weights{}, true},
		{"NaN", Weights{math.NaN(), 0.5, 0.25, 0.25}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("expected ErrInvalidWeights, got %v", err)
			}
		})
	}
}

func TestLoadCalibration_DefaultFile(t *testing.T) {
	configPath := filepath.Join("..", "..", "configs", "ranking.calibration.json")
	weights, err := LoadCalibration(configPath)
	if err != nil {
		t.Fatalf("expected no error loading default calibration file, got: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Errorf("loaded weights %+v don't match defaults %+v", weights, DefaultWeights())
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	weights, err := LoadCalibration("")
	if err != nil {
		t.Errorf("expected no error with empty path, got: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Errorf("expected defaults, got %+v", weights)
	}
}

func TestLoadCalibration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
		},
		{
			name: "malformed json",
			path: func(t *testing.T) string { return writeCalibration(t, `{"weights": {`) },
		},
		{
			name:    "weights do not sum to one",
			path:    func(t *testing.T) string { return writeCalibration(t, `{"weights": {"sentiment": 0.5}}`) },
			wantErr: ErrInvalidWeights,
		},
		{
			name:    "negative weight",
			path:    func(t *testing.T) string { return writeCalibration(t, `{"weights": {"sentiment": -0.25, "preference": 0.8}}`) },
			wantErr: ErrInvalidWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, err := LoadCalibration(tt.path(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if *weights != *DefaultWeights() {
				t.Errorf("expected defaults on error, got %+v", weights)
			}
		})
	}
}

func TestLoadCalibration_PartialOverride(t *testing.T) {
	path := writeCalibration(t, `{
		"version": "1.1",
		"weights": {"sentiment": 0.15, "budget": 0.25}
	}`)

	weights, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	want := Weights{Sentiment: 0.15, Preference: 0.30, Proximity: 0.30, Budget: 0.25}
	if *weights != want {
		t.Errorf("got %+v, want %+v", *weights, want)
	}
}

func TestLoadCalibration_ExplicitZero(t *testing.T) {
	path := writeCalibration(t, `{"weights": {"sentiment": 0, "preference": 0.55}}`)

	weights, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if weights.Sentiment != 0 || weights.Preference != 0.55 {
		t.Errorf("explicit zero not applied: %+v", weights)
	}
}

func TestMergeCalibration(t *testing.T) {
	t.Run("nil base uses defaults", func(t *testing.T) {
		got := MergeCalibration(nil, &WeightOverrides{Budget: float(0.2)})
		if got.Budget != 0.2 || got.Sentiment != 0.25 {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("nil override copies base", func(t *testing.T) {
		base := DefaultWeights()
		got := MergeCalibration(base, nil)
		if got == base {
			t.Error("expected a copy, got the same pointer")
		}
		if *got != *base {
			t.Errorf("got %+v, want %+v", got, base)
		}
	})

	t.Run("base is not modified", func(t *testing.T) {
		base := DefaultWeights()
		_ = MergeCalibration(base, &WeightOverrides{Sentiment: float(0.9)})
		if base.Sentiment != 0.25 {
			t.Errorf("base modified: %+v", base)
		}
	})
}
