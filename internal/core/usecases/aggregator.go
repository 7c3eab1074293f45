package usecases

import (
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/eventures/eventures/internal/core/domain"
)

// AggregatorConfig names the record fields holding coordinates. The zero
// value keys locations by the API's coordinate text, byte for byte.
type AggregatorConfig struct {
	LatField string
	LngField string
	// Round enables rounding both coordinates to Decimals places before
	// keying. Decimals is ignored unless Round is set.
	Round    bool
	Decimals int
}

// DefaultAggregatorConfig reads "lat" and "lng" and keys on exact text.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{LatField: "lat", LngField: "lng"}
}

// RoundTo returns a config rounding to decimals places. A negative value
// means exact text.
func (c AggregatorConfig) RoundTo(decimals int) AggregatorConfig {
	c.Round = decimals >= 0
	c.Decimals = max(decimals, 0)
	return c
}

// LocationAggregator collapses event records into unique locations.
// It holds configuration only; every Aggregate call starts from empty state.
type LocationAggregator struct {
	cfg AggregatorConfig
}

// NewLocationAggregator creates an aggregator. Empty field names fall back
// to the defaults.
func NewLocationAggregator(cfg AggregatorConfig) *LocationAggregator {
	def := DefaultAggregatorConfig()
	if cfg.LatField == "" {
		cfg.LatField = def.LatField
	}
	if cfg.LngField == "" {
		cfg.LngField = def.LngField
	}
	if cfg.Decimals < 0 {
		cfg.Round = false
	}
	if !cfg.Round {
		cfg.Decimals = 0
	}
	return &LocationAggregator{cfg: cfg}
}

// Config returns the aggregator's effective configuration.
func (a *LocationAggregator) Config() AggregatorConfig { return a.cfg }

// Aggregate counts records per location in first-seen order. Records with a
// missing or unusable coordinate are skipped.
func (a *LocationAggregator) Aggregate(records iter.Seq[domain.RawEventRecord]) domain.AggregationResult {
	t := a.NewTally()
	for rec := range records {
		t.Add(rec)
	}
	return t.Result()
}

// NewTally starts a fresh aggregation run.
func (a *LocationAggregator) NewTally() *Tally {
	return &Tally{cfg: a.cfg, index: make(map[domain.CoordinateKey]int)}
}

// Tally is the mutable state of one aggregation run. It is not safe for
// concurrent use.
type Tally struct {
	cfg     AggregatorConfig
	index   map[domain.CoordinateKey]int
	entries domain.AggregationResult
	seen    int
	skipped int
}

// Add counts one record and reports whether it had a usable coordinate.
func (t *Tally) Add(rec domain.FieldSource) bool {
	t.seen++
	latText, ok := rec.Field(t.cfg.LatField)
	if !ok {
		t.skipped++
		return false
	}
	lngText, ok := rec.Field(t.cfg.LngField)
	if !ok {
		t.skipped++
		return false
	}
	lat, ok := parseDegrees(latText, 90)
	if !ok {
		t.skipped++
		return false
	}
	lng, ok := parseDegrees(lngText, 180)
	if !ok {
		t.skipped++
		return false
	}

	key := domain.CoordinateKey{Lat: latText, Lng: lngText}
	if t.cfg.Round {
		key = domain.CoordinateKey{
			Lat: roundedText(lat, t.cfg.Decimals),
			Lng: roundedText(lng, t.cfg.Decimals),
		}
	}

	if i, exists := t.index[key]; exists {
		t.entries[i].Count++
		return true
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, domain.LocationCount{Key: key, Count: 1})
	return true
}

// Result returns the unique locations counted so far, with float
// coordinates parsed from their keys.
func (t *Tally) Result() domain.AggregationResult {
	out := make(domain.AggregationResult, len(t.entries))
	for i, e := range t.entries {
		e.Lat, _ = strconv.ParseFloat(e.Key.Lat, 64)
		e.Lng, _ = strconv.ParseFloat(e.Key.Lng, 64)
		out[i] = e
	}
	return out
}

// Seen returns how many records were offered.
func (t *Tally) Seen() int { return t.seen }

// Skipped returns how many records had no usable coordinate.
func (t *Tally) Skipped() int { return t.skipped }

// roundedText formats v rounded to decimals places. Values that round to
// zero from either side share the key "0.00...".
func roundedText(v float64, decimals int) string {
	scale := math.Pow10(decimals)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(r, 'f', decimals, 64)
}

// parseDegrees accepts plain decimal text within [-limit, limit].
func parseDegrees(s string, limit float64) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < -limit || f > limit {
		return 0, false
	}
	return f, true
}
