package geo

import (
	"math"
	"strings"
)

// Result is one resolved location with its derived pipeline values.
type Result struct {
	Hierarchy    string // "Geo|<continent>|<country>[|<region>][|<city>]"
	LocationHint string // "city, region, country" - last <=3 levels reversed
	Leaf         string // last non-empty level, usually the city
}

// maxCellDistanceKm bounds the nearest-cell search; coordinates further
// than this from any populated cell (open ocean, poles) resolve to nothing.
const maxCellDistanceKm = 120.0

// Lookup reverse-geocodes signed decimal degrees against the offline cell
// table. Returns nil when the coordinates match no land cell.
func Lookup(lat, lon float64) *Result {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}

	cell := nearestCell(lat, lon)
	if cell == nil {
		return nil
	}

	country, ok := countries[cell.CountryCode]
	if !ok {
		return nil
	}

	levels := []string{country.Continent, country.Name}
	if cell.Region != "" && !strings.EqualFold(cell.Region, country.Name) {
		levels = append(levels, cell.Region)
	}
	if cell.City != "" &&
		!strings.EqualFold(cell.City, cell.Region) &&
		!strings.EqualFold(cell.City, country.Name) {
		levels = append(levels, cell.City)
	}

	return &Result{
		Hierarchy:    "Geo|" + strings.Join(levels, "|"),
		LocationHint: locationHint(levels),
		Leaf:         levels[len(levels)-1],
	}
}

// locationHint renders the last up-to-three levels in reversed order:
// "Firenze, Toscana, Italy". The continent never appears in the hint.
func locationHint(levels []string) string {
	// drop the continent
	tail := levels[1:]
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	reversed := make([]string, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		reversed = append(reversed, tail[i])
	}
	return strings.Join(reversed, ", ")
}

// nearestCell scans the static table for the closest populated place within
// the distance bound. The table is small enough that a linear scan beats
// any index.
func nearestCell(lat, lon float64) *cell {
	var best *cell
	bestDist := maxCellDistanceKm
	for i := range cells {
		d := haversineKm(lat, lon, cells[i].Lat, cells[i].Lon)
		if d < bestDist {
			bestDist = d
			best = &cells[i]
		}
	}
	return best
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180.0
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
