package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Point
		wantKm  float64
		epsilon float64
	}{
		{
			name:    "same point",
			a:       NewPoint(30.0333, 31.2333),
			b:       NewPoint(30.0333, 31.2333),
			wantKm:  0,
			epsilon: 1e-9,
		},
		{
			name:    "downtown cairo short hop",
			a:       NewPoint(30.0333, 31.2333),
			b:       NewPoint(30.0444, 31.2357),
			wantKm:  1.256,
			epsilon: 0.01,
		},
		{
			name:    "one degree of latitude",
			a:       NewPoint(0, 0),
			b:       NewPoint(1, 0),
			wantKm:  111.195,
			epsilon: 0.01,
		},
		{
			name:    "london to paris",
			a:       NewPoint(51.5074, -0.1278),
			b:       NewPoint(48.8566, 2.3522),
			wantKm:  343.5,
			epsilon: 1.0,
		},
		{
			name:    "antipodal points",
			a:       NewPoint(0, 0),
			b:       NewPoint(0, 180),
			wantKm:  math.Pi * EarthRadiusKm,
			epsilon: 1e-6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.epsilon {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.epsilon)
			}
		})
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := NewPoint(30.0333, 31.2333)
	b := NewPoint(30.10, 31.30)

	if ab, ba := HaversineKm(a, b), HaversineKm(b, a); math.Abs(ab-ba) > 1e-12 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
	if got := a.DistanceKm(b); got != HaversineKm(a, b) {
		t.Errorf("DistanceKm() = %f, want %f", got, HaversineKm(a, b))
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat, lng  float64
		precision int
		want      string
	}{
		{"seattle", 47.6062, -122.3321, 6, "c23nb6"},
		{"berlin", 52.5200, 13.4050, 6, "u33dc0"},
		{"london", 51.5074, -0.1278, 6, "gcpvj0"},
		{"shorter precision", 47.6062, -122.3321, 5, "c23nb"},
		{"default precision on zero", 47.6062, -122.3321, 0, "c23nb6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.lat, tt.lng, tt.precision); got != tt.want {
				t.Errorf("Encode(%f, %f, %d) = %q, want %q", tt.lat, tt.lng, tt.precision, got, tt.want)
			}
		})
	}
}

func TestPoint_Geohash(t *testing.T) {
	p := NewPoint(51.5074, -0.1278)
	if got := p.Geohash(); got != "gcpvj0" {
		t.Errorf("Geohash() = %q, want %q", got, "gcpvj0")
	}
}
