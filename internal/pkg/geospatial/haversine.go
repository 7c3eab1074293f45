// Package geospatial holds the distance and area helpers used to describe
// radius searches.
package geospatial

import (
	"math"

	"github.com/eventures/eventures/internal/core/domain"
)

const (
	earthRadiusMeters = 6_371_000.0
	metersPerDegree   = 111_320.0
)

// Distance returns the great-circle distance in metres between a and b.
func Distance(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(min(h, 1)))
}

// SearchArea returns the box enclosing a circle of radiusMeters around
// center. Latitudes are clamped at the poles; a circle that reaches a pole
// or crosses the antimeridian spans every longitude.
func SearchArea(center domain.Coordinate, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / metersPerDegree
	b := domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}

	lngDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(center.Lat)))
	if center.Lng-lngDelta < -180 || center.Lng+lngDelta > 180 {
		return b
	}
	b.MinLng = center.Lng - lngDelta
	b.MaxLng = center.Lng + lngDelta
	return b
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
