package geo

import (
	"strings"
	"testing"
)

func TestLookupFlorence(t *testing.T) {
	t.Parallel()

	res := Lookup(43.7696, 11.2558)
	if res == nil {
		t.Fatal("Florence should resolve")
	}
	if res.Hierarchy != "Geo|Europe|Italy|Toscana|Firenze" {
		t.Errorf("hierarchy = %q", res.Hierarchy)
	}
	if res.LocationHint != "Firenze, Toscana, Italy" {
		t.Errorf("location hint = %q", res.LocationHint)
	}
	if res.Leaf != "Firenze" {
		t.Errorf("leaf = %q", res.Leaf)
	}
}

func TestLookupNearbyCoordinatesSnapToCity(t *testing.T) {
	t.Parallel()

	// Fiesole, a few km northeast of Florence
	res := Lookup(43.8065, 11.2926)
	if res == nil || res.Leaf != "Firenze" {
		t.Fatalf("expected snap to Firenze, got %+v", res)
	}
}

func TestLookupOpenOceanIsNil(t *testing.T) {
	t.Parallel()

	// mid-Atlantic
	if res := Lookup(0.0, -30.0); res != nil {
		t.Errorf("open ocean resolved to %+v", res)
	}
	// southern ocean
	if res := Lookup(-65.0, 1.0); res != nil {
		t.Errorf("southern ocean resolved to %+v", res)
	}
}

func TestLookupOutOfRangeIsNil(t *testing.T) {
	t.Parallel()

	if Lookup(95.0, 10.0) != nil {
		t.Error("latitude out of range must not resolve")
	}
	if Lookup(45.0, 200.0) != nil {
		t.Error("longitude out of range must not resolve")
	}
}

func TestHierarchyInvariants(t *testing.T) {
	t.Parallel()

	// every segment of every resolvable cell must be non-empty and the
	// hierarchy must be Geo-rooted
	probes := []struct{ lat, lon float64 }{
		{43.7696, 11.2558},   // Firenze
		{1.3521, 103.8198},   // Singapore: city-state, no region level
		{43.7384, 7.4246},    // Monaco: city == country name case
		{-33.8688, 151.2093}, // Sydney
	}
	for _, p := range probes {
		res := Lookup(p.lat, p.lon)
		if res == nil {
			t.Errorf("probe (%f,%f) should resolve", p.lat, p.lon)
			continue
		}
		if !strings.HasPrefix(res.Hierarchy, "Geo|") {
			t.Errorf("hierarchy %q not Geo-rooted", res.Hierarchy)
		}
		for _, seg := range strings.Split(res.Hierarchy, "|") {
			if seg == "" {
				t.Errorf("empty segment in %q", res.Hierarchy)
			}
		}
	}
}

func TestSingaporeDropsRedundantLevels(t *testing.T) {
	t.Parallel()

	res := Lookup(1.3521, 103.8198)
	if res == nil {
		t.Fatal("Singapore should resolve")
	}
	// region is empty and city equals country: both dropped
	if res.Hierarchy != "Geo|Asia|Singapore" {
		t.Errorf("hierarchy = %q", res.Hierarchy)
	}
	if res.Leaf != "Singapore" {
		t.Errorf("leaf = %q", res.Leaf)
	}
	if res.LocationHint != "Singapore" {
		t.Errorf("hint = %q", res.LocationHint)
	}
}

func TestLocationHintCapsAtThreeLevels(t *testing.T) {
	t.Parallel()

	hint := locationHint([]string{"Europe", "Italy", "Toscana", "Firenze"})
	if hint != "Firenze, Toscana, Italy" {
		t.Errorf("hint = %q", hint)
	}
	hint = locationHint([]string{"Asia", "Singapore"})
	if hint != "Singapore" {
		t.Errorf("hint = %q", hint)
	}
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	// Firenze to Roma is about 230 km
	d := haversineKm(43.7696, 11.2558, 41.9028, 12.4964)
	if d < 200 || d > 260 {
		t.Errorf("Firenze-Roma distance = %f km", d)
	}
	if d := haversineKm(10, 10, 10, 10); d != 0 {
		t.Errorf("zero distance = %f", d)
	}
}
