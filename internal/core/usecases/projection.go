package usecases

import "github.com/eventures/eventures/internal/core/domain"

// ProjectMarkers maps each unique location to one marker. Counts are dropped.
func ProjectMarkers(result domain.AggregationResult) []domain.MarkerSpec {
	markers := make([]domain.MarkerSpec, 0, len(result))
	for _, loc := range result {
		markers = append(markers, domain.MarkerSpec{Latitude: loc.Lat, Longitude: loc.Lng})
	}
	return markers
}
