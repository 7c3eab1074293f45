package eventfinda_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/adapters/eventfinda"
	"github.com/eventures/eventures/internal/core/domain"
)

const samplePage = `{
  "@attributes": {"count": 42},
  "events": [
    {"name": "Jazz Night", "url": "https://www.eventfinda.co.nz/jazz", "point": {"lat": -36.87343, "lng": 174.76516}},
    "not an object",
    42,
    {"name": "Market", "is_free": true, "point": {"lat": "-45.0", "lng": "168.6"}, "tags": ["a", "b"], "venue": null},
    {"name": "No location"}
  ]
}`

func TestParse_Records(t *testing.T) {
	page, err := eventfinda.Parse([]byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, 5, page.Len())
	total, ok := page.Total()
	assert.True(t, ok)
	assert.Equal(t, 42, total)

	records := slices.Collect(page.Records())
	require.Len(t, records, 3)

	assert.Equal(t, domain.RawEventRecord{
		"name":      "Jazz Night",
		"url":       "https://www.eventfinda.co.nz/jazz",
		"point.lat": "-36.87343",
		"point.lng": "174.76516",
	}, records[0])

	assert.Equal(t, "true", records[1]["is_free"])
	assert.Equal(t, "-45.0", records[1]["point.lat"])
	_, hasTags := records[1]["tags"]
	assert.False(t, hasTags)
	_, hasVenue := records[1]["venue"]
	assert.False(t, hasVenue)

	assert.Equal(t, domain.RawEventRecord{"name": "No location"}, records[2])
}

func TestParse_NumbersKeepTheirText(t *testing.T) {
	page, err := eventfinda.Parse([]byte(`{"@attributes":{},"events":[{"lat":-36.850000,"lng":1.5e2}]}`))
	require.NoError(t, err)

	records := slices.Collect(page.Records())
	require.Len(t, records, 1)
	assert.Equal(t, "-36.850000", records[0]["lat"])
	assert.Equal(t, "1.5e2", records[0]["lng"])
}

func TestParse_RecordsSingleUse(t *testing.T) {
	page, err := eventfinda.Parse([]byte(samplePage))
	require.NoError(t, err)

	assert.Len(t, slices.Collect(page.Records()), 3)
	assert.Empty(t, slices.Collect(page.Records()))
}

func TestParse_ResultArrayIsLastMemberWhateverItsName(t *testing.T) {
	page, err := eventfinda.Parse([]byte(`{"meta":1,"items":[{"a":"1"}],"locations":[{"b":"2"},{"b":"3"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Len())
	_, ok := page.Total()
	assert.False(t, ok)
}

func TestParse_EmptyResultArray(t *testing.T) {
	page, err := eventfinda.Parse([]byte(`{"@attributes":{"count":0},"events":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, page.Len())
	assert.Empty(t, slices.Collect(page.Records()))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind error
	}{
		{"not json", `<html>oops</html>`, domain.ErrInvalidJSON},
		{"truncated", `{"@attributes":{"count":1},"events":[{"a":`, domain.ErrInvalidJSON},
		{"top-level array", `[{"lat":"1"}]`, domain.ErrUnexpectedShape},
		{"top-level string", `"hello"`, domain.ErrUnexpectedShape},
		{"empty object", `{}`, domain.ErrMissingResultArray},
		{"single member", `{"events":[]}`, domain.ErrMissingResultArray},
		{"last member object", `{"events":[],"@attributes":{"count":1}}`, domain.ErrUnexpectedShape},
		{"last member string", `{"a":1,"events":"none"}`, domain.ErrUnexpectedShape},
		{"trailing garbage", `{"a":1,"events":[]}xyz`, domain.ErrInvalidJSON},
		{"second envelope", `{"a":1,"events":[]}{"a":2,"events":[]}`, domain.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := eventfinda.Parse([]byte(tt.body))
			assert.Nil(t, page)
			assert.ErrorIs(t, err, tt.kind)

			var pe *domain.ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestParse_TrailingWhitespaceAllowed(t *testing.T) {
	page, err := eventfinda.Parse([]byte("{\"a\":1,\"events\":[{\"b\":\"2\"}]}\n\t "))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Len())
}

func TestParser_ImplementsPort(t *testing.T) {
	page, err := eventfinda.Parser{}.Parse([]byte(`{"a":1,"b":"x"}`))
	assert.Nil(t, page)
	assert.ErrorIs(t, err, domain.ErrUnexpectedShape)
}
