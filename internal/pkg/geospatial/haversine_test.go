package geospatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/geospatial"
)

var (
	auckland   = domain.Coordinate{Lat: -36.8485, Lng: 174.7633}
	wellington = domain.Coordinate{Lat: -41.2866, Lng: 174.7756}
)

func TestDistance(t *testing.T) {
	assert.Zero(t, geospatial.Distance(auckland, auckland))
	// Auckland to Wellington is about 493 km.
	assert.InDelta(t, 493_000, geospatial.Distance(auckland, wellington), 5_000)
	assert.InDelta(t, geospatial.Distance(auckland, wellington), geospatial.Distance(wellington, auckland), 1e-6)
}

func TestSearchArea(t *testing.T) {
	b := geospatial.SearchArea(auckland, 10_000)
	assert.InDelta(t, auckland.Lat-0.0898, b.MinLat, 1e-3)
	assert.InDelta(t, auckland.Lat+0.0898, b.MaxLat, 1e-3)
	assert.Less(t, b.MinLng, auckland.Lng)
	assert.Greater(t, b.MaxLng, auckland.Lng)
	// Longitude degrees shrink away from the equator.
	assert.Greater(t, b.MaxLng-auckland.Lng, b.MaxLat-auckland.Lat)
}

func TestSearchArea_Edges(t *testing.T) {
	polar := geospatial.SearchArea(domain.Coordinate{Lat: -89.5, Lng: 0}, 100_000)
	assert.Equal(t, -90.0, polar.MinLat)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)

	chatham := geospatial.SearchArea(domain.Coordinate{Lat: -44.0, Lng: 179.9}, 50_000)
	assert.Equal(t, -180.0, chatham.MinLng)
	assert.Equal(t, 180.0, chatham.MaxLng)
	assert.Greater(t, chatham.MinLat, -90.0)
}
