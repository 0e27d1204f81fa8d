package geo

import (
	"math"
	"testing"
)

func TestDistanceMiles_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want, tolerance        float64
	}{
		{name: "one degree of latitude", lat1: 0, lng1: 0, lat2: 1, lng2: 0, want: 69.09, tolerance: 0.05},
		{name: "times square to empire state", lat1: 40.7580, lng1: -73.9855, lat2: 40.7484, lng2: -73.9857, want: 0.66, tolerance: 0.02},
		{name: "antimeridian", lat1: 0, lng1: 179.9, lat2: 0, lng2: -179.9, want: 13.82, tolerance: 0.05},
		{name: "pole to pole", lat1: 90, lng1: 0, lat2: -90, lng2: 0, want: math.Pi * EarthRadiusMiles, tolerance: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMiles(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMiles = %.4f; want %.4f ± %.3f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceMiles_SymmetricAndZero(t *testing.T) {
	points := [][2]float64{
		{40.7128, -74.0060},
		{34.0522, -118.2437},
		{-33.8688, 151.2093},
		{89.9, 0},
		{-90, 180},
		{0, -180},
	}

	for _, a := range points {
		if d := DistanceMiles(a[0], a[1], a[0], a[1]); d != 0 {
			t.Errorf("DistanceMiles(a, a) = %v for %v; want 0", d, a)
		}
		for _, b := range points {
			ab := DistanceMiles(a[0], a[1], b[0], b[1])
			ba := DistanceMiles(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("asymmetric distance %v <-> %v: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 || math.IsNaN(ab) {
				t.Errorf("DistanceMiles(%v, %v) = %v; want finite non-negative", a, b, ab)
			}
		}
	}
}

func TestMetersToMiles(t *testing.T) {
	if got := MetersToMiles(8000); math.Abs(got-4.97) > 0.01 {
		t.Errorf("MetersToMiles(8000) = %v; want ~4.97", got)
	}
}
