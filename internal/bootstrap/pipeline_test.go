package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/adapters/eventfinda"
	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Eventfinda: config.EventfindaConfig{
			Endpoint:     "https://api.eventfinda.test/v2/events.json",
			Username:     "user",
			Password:     "pass",
			Timeout:      5,
			MaxBodyBytes: 1 << 20,
			FieldScope:   "event",
			Breaker:      config.BreakerConfig{Enabled: true, FailureThreshold: 3, MaxRequests: 1, Interval: 60, Timeout: 30},
			Retry:        config.RetryConfig{MaxRetries: 1, InitialIntervalMs: 250, MaxIntervalMs: 1000},
		},
		Query:       config.QueryConfig{Fields: []string{"name", "location"}, PageSize: 10, MaxPages: 4},
		Aggregation: config.AggregationConfig{LatField: "location.lat", LngField: "location.lng", Precision: 4},
		Cache:       config.CacheConfig{TTL: 120},
	}
}

type stubFetcher struct{ body string }

func (s stubFetcher) Fetch(ctx context.Context, req domain.RequestDescriptor) ([]byte, error) {
	return []byte(s.body), nil
}

func TestServiceConfig(t *testing.T) {
	sc := ServiceConfig(testConfig())
	assert.Equal(t, 4, sc.MaxPages)
	assert.Equal(t, 1, sc.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, sc.RetryInitialInterval)
	assert.Equal(t, time.Second, sc.RetryMaxInterval)
	assert.Equal(t, 2*time.Minute, sc.CacheTTL)
}

func TestNewFetcher_Breaker(t *testing.T) {
	cfg := testConfig()
	_, ok := NewFetcher(cfg).(*eventfinda.BreakerFetcher)
	assert.True(t, ok)

	cfg.Eventfinda.Breaker.Enabled = false
	_, ok = NewFetcher(cfg).(*eventfinda.Client)
	assert.True(t, ok)
}

func TestNewPipeline_UsesConfiguredFields(t *testing.T) {
	body := `{"@attributes":{"count":2},"events":[` +
		`{"name":"a","location":{"lat":-41.28664,"lng":174.77557}},` +
		`{"name":"b","location":{"lat":-41.286641,"lng":174.775571}}]}`

	p, err := NewPipeline(testConfig(), stubFetcher{body: body})
	require.NoError(t, err)
	defer p.Close()
	assert.Nil(t, p.Cache)
	assert.Nil(t, p.Publisher)
	assert.Nil(t, p.Breaker)

	report, err := p.Service.Collect(context.Background(), domain.QueryParameters{
		Fields:   []string{"name", "location"},
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, report.Locations, 1, "precision 4 merges nearby points")
	assert.Equal(t, 2, report.Locations[0].Count)
}

func TestNewPipeline_ExposesBreaker(t *testing.T) {
	cfg := testConfig()
	p, err := NewPipeline(cfg, NewFetcher(cfg))
	require.NoError(t, err)
	require.NotNil(t, p.Breaker)
	assert.Equal(t, "closed", p.Breaker.State())
}

func TestNewPipeline_RequiresCoordinateField(t *testing.T) {
	p, err := NewPipeline(testConfig(), stubFetcher{})
	require.NoError(t, err)

	_, err = p.Service.Collect(context.Background(), domain.QueryParameters{
		Fields:   []string{"name"},
		PageSize: 10,
	})
	var ce *domain.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fields", ce.Field)
}

func TestNewPipeline_BadEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Eventfinda.Endpoint = "ftp://example.com"
	_, err := NewPipeline(cfg, stubFetcher{})
	assert.Error(t, err)
}
