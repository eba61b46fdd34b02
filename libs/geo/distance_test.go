package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	// Paulista Ave to Ibirapuera Park, São Paulo: roughly 3.3 km.
	a := Point{Lat: -23.5614, Lng: -46.6559}
	b := Point{Lat: -23.5874, Lng: -46.6576}
	d := DistanceMeters(a, b)
	if d < 2500 || d > 3500 {
		t.Fatalf("unexpected distance: %.0f m", d)
	}
}

func TestDistanceZero(t *testing.T) {
	p := Point{Lat: 40.0, Lng: -3.0}
	if d := DistanceMeters(p, p); math.Abs(d) > 0.001 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}
}

func TestWithinRadius(t *testing.T) {
	center := Point{Lat: -23.5614, Lng: -46.6559}
	near := Point{Lat: -23.5615, Lng: -46.6560} // a few meters away
	far := Point{Lat: -23.5874, Lng: -46.6576}  // kilometers away

	if !WithinRadius(center, near, 100) {
		t.Fatal("near point should be inside 100m fence")
	}
	if WithinRadius(center, far, 100) {
		t.Fatal("far point should be outside 100m fence")
	}
	if WithinRadius(center, near, 0) {
		t.Fatal("zero radius admits nothing")
	}
}
