package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/config"
)

func TestSearchFlags_Params(t *testing.T) {
	fs, sf := newFlagSet()
	require.NoError(t, fs.Parse([]string{
		"--q", " jazz ",
		"--point", "-36.8485, 174.7633",
		"--radius", "5000",
		"--start-date", "2026-03-01",
		"--offset", "40",
		"--fields", "name,point,url",
		"--rows", "10",
		"--pages", "3",
	}))

	cfg := &config.Config{Query: config.QueryConfig{Fields: []string{"name", "point"}, PageSize: 20}}
	p, err := sf.params(cfg)
	require.NoError(t, err)

	assert.Equal(t, "jazz", p.SearchTerm)
	assert.Equal(t, []string{"name", "point", "url"}, p.Fields)
	require.NotNil(t, p.Center)
	assert.Equal(t, domain.Coordinate{Lat: -36.8485, Lng: 174.7633}, *p.Center)
	assert.Equal(t, 5000.0, p.RadiusMeters)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.Dates.Start)
	assert.True(t, p.Dates.End.IsZero())
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 40, p.PageOffset)
	assert.NoError(t, p.Validate())
	assert.Len(t, sf.runOptions(), 1)
}

func TestSearchFlags_ConfigDefaults(t *testing.T) {
	fs, sf := newFlagSet()
	require.NoError(t, fs.Parse(nil))

	cfg := &config.Config{Query: config.QueryConfig{Fields: []string{"name", "point"}, PageSize: 20}}
	p, err := sf.params(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "point"}, p.Fields)
	assert.Equal(t, 20, p.PageSize)
	assert.Nil(t, p.Center)
	assert.Empty(t, sf.runOptions())
}

func TestSearchFlags_Invalid(t *testing.T) {
	cfg := &config.Config{Query: config.QueryConfig{Fields: []string{"point"}, PageSize: 20}}

	for _, args := range [][]string{
		{"--point", "-36.8"},
		{"--point", "north,174"},
		{"--end-date", "31/03/2026"},
	} {
		fs, sf := newFlagSet()
		require.NoError(t, fs.Parse(args))
		_, err := sf.params(cfg)
		assert.Error(t, err, "%v", args)
	}
}

func TestRun_UnknownFlagIsUsageError(t *testing.T) {
	assert.Equal(t, exitUsage, run([]string{"--nope"}, &bytes.Buffer{}))
}

func TestExitCodeFor(t *testing.T) {
	queryErr := &domain.ConfigurationError{Field: "radius", Reason: "requires a center point"}
	assert.Equal(t, exitUsage, exitCodeFor(queryErr))
	assert.Equal(t, exitUsage, exitCodeFor(fmt.Errorf("build query: %w", queryErr)))

	assert.Equal(t, exitPipeline, exitCodeFor(&domain.FetchError{Kind: domain.ErrHTTPStatus, StatusCode: 503}))
	assert.Equal(t, exitPipeline, exitCodeFor(&domain.ParseError{Kind: domain.ErrInvalidJSON}))
}

func TestWriteBatch(t *testing.T) {
	batch := &domain.MarkerBatch{
		RunID:   "run-1",
		Markers: []domain.MarkerSpec{{Latitude: -36.85, Longitude: 174.76}},
	}

	var stdout bytes.Buffer
	require.NoError(t, writeBatch("-", &stdout, batch))
	var got domain.MarkerBatch
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, batch.Markers, got.Markers)

	path := filepath.Join(t.TempDir(), "markers.json")
	require.NoError(t, writeBatch(path, &stdout, batch))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}
