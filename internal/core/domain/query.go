package domain

import (
	"fmt"
	"log/slog"
	"time"
)

// DateLayout is the calendar-date format used for date bounds (ISO 8601, no time).
const DateLayout = "2006-01-02"

// DateRange bounds an event search by date. A zero bound is absent.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// QueryParameters describes one paginated event search. It is treated as an
// immutable value: callers pass it by value and the pipeline never mutates it.
type QueryParameters struct {
	SearchTerm   string      `json:"search_term,omitempty"`
	Fields       []string    `json:"fields"`
	Center       *Coordinate `json:"center,omitempty"`
	RadiusMeters float64     `json:"radius_meters,omitempty"` // 0 = unset; requires Center
	Dates        DateRange   `json:"dates"`
	PageSize     int         `json:"page_size"`
	PageOffset   int         `json:"page_offset"`
}

// WithOffset returns a copy of p positioned at the given row offset.
func (p QueryParameters) WithOffset(offset int) QueryParameters {
	p.Fields = append([]string(nil), p.Fields...)
	if p.Center != nil {
		c := *p.Center
		p.Center = &c
	}
	p.PageOffset = offset
	return p
}

// Validate checks the invariants that do not depend on the target API.
func (p QueryParameters) Validate() error {
	if len(p.Fields) == 0 {
		return &ConfigurationError{Field: "fields", Reason: "at least one field must be requested"}
	}
	if p.PageSize <= 0 {
		return &ConfigurationError{Field: "page_size", Reason: fmt.Sprintf("must be positive, got %d", p.PageSize)}
	}
	if p.PageOffset < 0 {
		return &ConfigurationError{Field: "page_offset", Reason: fmt.Sprintf("must be >= 0, got %d", p.PageOffset)}
	}
	if p.RadiusMeters < 0 {
		return &ConfigurationError{Field: "radius", Reason: "must not be negative"}
	}
	if p.RadiusMeters > 0 && p.Center == nil {
		return &ConfigurationError{Field: "radius", Reason: "radius requires a center coordinate"}
	}
	if p.Center != nil && !p.Center.Valid() {
		return &ConfigurationError{Field: "center", Reason: "coordinate out of range"}
	}
	if !p.Dates.Start.IsZero() && !p.Dates.End.IsZero() && p.Dates.End.Before(p.Dates.Start) {
		return &ConfigurationError{Field: "dates", Reason: "end date is before start date"}
	}
	return nil
}

// RequestDescriptor is a fully encoded request for one page of results.
type RequestDescriptor struct {
	URL        string `json:"url"`
	PageSize   int    `json:"page_size"`
	PageOffset int    `json:"page_offset"`
}

// BasicAuthCredentials authenticate against the upstream API.
// The password is never rendered by String, GoString or slog.
type BasicAuthCredentials struct {
	Username string
	Password string
}

func (c BasicAuthCredentials) String() string {
	return c.Username + ":[redacted]"
}

func (c BasicAuthCredentials) GoString() string {
	return fmt.Sprintf("domain.BasicAuthCredentials{Username:%q, Password:[redacted]}", c.Username)
}

// LogValue implements slog.LogValuer.
func (c BasicAuthCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "[redacted]"),
	)
}

// Empty reports whether no username is configured.
func (c BasicAuthCredentials) Empty() bool {
	return c.Username == ""
}
