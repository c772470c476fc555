package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		unit     Unit
		expected float64
		epsilon  float64
	}{
		{
			name: "coincident points",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7128, lon2: -74.0060,
			unit:     Kilometers,
			expected: 0,
			epsilon:  0,
		},
		{
			name: "one degree of longitude at equator km",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 1,
			unit:     Kilometers,
			expected: 111.19,
			epsilon:  0.5,
		},
		{
			name: "new york to chicago km",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 41.8781, lon2: -87.6298,
			unit:     Kilometers,
			expected: 1145,
			epsilon:  10,
		},
		{
			name: "new york to chicago miles",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 41.8781, lon2: -87.6298,
			unit:     Miles,
			expected: 711,
			epsilon:  10,
		},
		{
			name: "antipodal points stay finite",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 180,
			unit:     Kilometers,
			expected: math.Pi * 6371.0,
			epsilon:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2, tt.unit)
			if math.IsNaN(got) {
				t.Fatal("distance is NaN")
			}
			if got < 0 {
				t.Fatalf("distance is negative: %f", got)
			}
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("expected %.2f ± %.2f, got %.2f", tt.expected, tt.epsilon, got)
			}
		})
	}
}

func TestDistanceNearCoincident(t *testing.T) {
	// Floating point noise must not produce NaN through the inverse trig step
	got := Distance(45.0, -93.0, 45.0+1e-13, -93.0+1e-13, Kilometers)
	if math.IsNaN(got) {
		t.Fatal("near-coincident distance is NaN")
	}
	if got < 0 || got > 0.001 {
		t.Errorf("expected near-zero distance, got %g", got)
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"valid", 44.97, -93.26, false},
		{"north pole", 90, 0, false},
		{"latitude too high", 90.1, 0, true},
		{"latitude too low", -91, 0, true},
		{"longitude too high", 0, 181, true},
		{"longitude too low", 0, -180.5, true},
		{"nan latitude", math.NaN(), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(tt.lat, tt.lng)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinate(%v, %v) error = %v, wantErr %v", tt.lat, tt.lng, err, tt.wantErr)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	if u, err := ParseUnit("mi"); err != nil || u != Miles {
		t.Errorf("ParseUnit(mi) = %v, %v", u, err)
	}
	if u, err := ParseUnit(""); err != nil || u != Kilometers {
		t.Errorf("ParseUnit empty should default to km, got %v, %v", u, err)
	}
	if _, err := ParseUnit("furlongs"); err == nil {
		t.Error("expected error for unknown unit")
	}
}
