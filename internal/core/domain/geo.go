package domain

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies inside the WGS 84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// BoundsOf returns the smallest box containing every location, or nil when
// there are none.
func BoundsOf(locations AggregationResult) *Bounds {
	if len(locations) == 0 {
		return nil
	}
	b := &Bounds{
		MinLat: locations[0].Lat, MaxLat: locations[0].Lat,
		MinLng: locations[0].Lng, MaxLng: locations[0].Lng,
	}
	for _, l := range locations[1:] {
		b.MinLat = min(b.MinLat, l.Lat)
		b.MaxLat = max(b.MaxLat, l.Lat)
		b.MinLng = min(b.MinLng, l.Lng)
		b.MaxLng = max(b.MaxLng, l.Lng)
	}
	return b
}
