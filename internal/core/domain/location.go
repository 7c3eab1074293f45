package domain

import "time"

// FieldSource is a schema-free record: a string-keyed lookup of string values.
type FieldSource interface {
	Field(name string) (string, bool)
}

// RawEventRecord holds the fields decoded from one event in an API page.
// Fields the API did not return are absent keys.
type RawEventRecord map[string]string

// Field implements FieldSource.
func (r RawEventRecord) Field(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

// CoordinateKey identifies a unique location by its raw latitude and
// longitude text.
type CoordinateKey struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// LocationCount is one unique location and how many events were seen there.
type LocationCount struct {
	Key   CoordinateKey `json:"key"`
	Lat   float64       `json:"lat"`
	Lng   float64       `json:"lng"`
	Count int           `json:"count"`
}

// AggregationResult lists unique locations in first-seen order.
type AggregationResult []LocationCount

// Total returns the number of events across all locations.
func (r AggregationResult) Total() int {
	n := 0
	for _, l := range r {
		n += l.Count
	}
	return n
}

// MarkerSpec is what a map renderer needs to place one marker.
type MarkerSpec struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationReport is the outcome of one ingestion run.
type LocationReport struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Query       QueryParameters   `json:"query"`
	Pages       int               `json:"pages"`
	Records     int               `json:"records"`
	Skipped     int               `json:"skipped"`
	Locations   AggregationResult `json:"locations"`
	Bounds      *Bounds           `json:"bounds,omitempty"`
}

// MarkerBatch is the marker list handed to rendering collaborators.
type MarkerBatch struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Markers     []MarkerSpec `json:"markers"`
	Bounds      *Bounds      `json:"bounds,omitempty"`
}
