package eventfinda

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/eventures/eventures/internal/core/domain"
)

// DefaultEndpoint is the Eventfinda v2 event search endpoint.
const DefaultEndpoint = "https://api.eventfinda.co.nz/v2/events.json"

// MaxRows is the largest page the API serves.
const MaxRows = 20

// QueryBuilder encodes QueryParameters as Eventfinda query strings.
type QueryBuilder struct {
	endpoint       *url.URL
	fieldScope     string
	requiredFields []string
	maxRows        int
}

// QueryBuilderOption configures a QueryBuilder.
type QueryBuilderOption func(*QueryBuilder)

// WithFieldScope wraps the field list as "<scope>:(a,b)". An empty scope
// sends the bare comma-joined list.
func WithFieldScope(scope string) QueryBuilderOption {
	return func(b *QueryBuilder) { b.fieldScope = scope }
}

// WithRequiredFields sets the fields every query must request.
func WithRequiredFields(fields ...string) QueryBuilderOption {
	return func(b *QueryBuilder) { b.requiredFields = fields }
}

// WithMaxRows overrides the page size ceiling.
func WithMaxRows(n int) QueryBuilderOption {
	return func(b *QueryBuilder) { b.maxRows = n }
}

// NewQueryBuilder creates a builder for the given endpoint.
func NewQueryBuilder(endpoint string, opts ...QueryBuilderOption) (*QueryBuilder, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be http(s), got %q", endpoint)
	}
	if u.User != nil {
		return nil, fmt.Errorf("endpoint must not embed credentials")
	}
	b := &QueryBuilder{
		endpoint:       u,
		fieldScope:     "event",
		requiredFields: []string{"point"},
		maxRows:        MaxRows,
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// RequiredFieldsFor returns the top-level fields that must be requested so the
// given record field paths are present, e.g. "point.lat" needs "point".
func RequiredFieldsFor(paths ...string) []string {
	var out []string
	for _, p := range paths {
		root, _, _ := strings.Cut(p, ".")
		if !slices.Contains(out, root) {
			out = append(out, root)
		}
	}
	return out
}

// BuildQuery validates params and encodes them into a request descriptor.
// Unset optional parameters are left out of the query entirely.
func (b *QueryBuilder) BuildQuery(params domain.QueryParameters) (domain.RequestDescriptor, error) {
	if err := params.Validate(); err != nil {
		return domain.RequestDescriptor{}, err
	}
	if b.maxRows > 0 && params.PageSize > b.maxRows {
		return domain.RequestDescriptor{}, &domain.ConfigurationError{
			Field:  "page_size",
			Reason: fmt.Sprintf("must be at most %d, got %d", b.maxRows, params.PageSize),
		}
	}
	for _, f := range b.requiredFields {
		if !slices.Contains(params.Fields, f) {
			return domain.RequestDescriptor{}, &domain.ConfigurationError{
				Field:  "fields",
				Reason: fmt.Sprintf("coordinate field %q must be requested", f),
			}
		}
	}

	q := url.Values{}
	if params.SearchTerm != "" {
		q.Set("q", params.SearchTerm)
	}
	q.Set("fields", b.encodeFields(params.Fields))
	if params.Center != nil {
		q.Set("point", formatFloat(params.Center.Lat)+","+formatFloat(params.Center.Lng))
	}
	if params.RadiusMeters > 0 {
		// The API takes the radius in kilometres.
		q.Set("radius", formatFloat(params.RadiusMeters/1000))
	}
	if !params.Dates.Start.IsZero() {
		q.Set("start_date", params.Dates.Start.Format(domain.DateLayout))
	}
	if !params.Dates.End.IsZero() {
		q.Set("end_date", params.Dates.End.Format(domain.DateLayout))
	}
	q.Set("rows", strconv.Itoa(params.PageSize))
	q.Set("offset", strconv.Itoa(params.PageOffset))

	u := *b.endpoint
	u.RawQuery = q.Encode()

	return domain.RequestDescriptor{
		URL:        u.String(),
		PageSize:   params.PageSize,
		PageOffset: params.PageOffset,
	}, nil
}

func (b *QueryBuilder) encodeFields(fields []string) string {
	joined := strings.Join(fields, ",")
	if b.fieldScope == "" {
		return joined
	}
	return b.fieldScope + ":(" + joined + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
