package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/pkg/config"
)

func setCredentials(t *testing.T) {
	t.Setenv("EVENTURES_EVENTFINDA_USERNAME", "eventures")
	t.Setenv("EVENTURES_EVENTFINDA_PASSWORD", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := config.Load("eventures-test")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.eventfinda.co.nz/v2/events.json", cfg.Eventfinda.Endpoint)
	assert.Equal(t, "eventures-test", cfg.Eventfinda.UserAgent)
	assert.Equal(t, 15, cfg.Eventfinda.Timeout)
	assert.Equal(t, int64(8<<20), cfg.Eventfinda.MaxBodyBytes)
	assert.Equal(t, []string{"name", "url", "point"}, cfg.Query.Fields)
	assert.Equal(t, 20, cfg.Query.PageSize)
	assert.Equal(t, 5, cfg.Query.MaxPages)
	assert.Equal(t, "point.lat", cfg.Aggregation.LatField)
	assert.Equal(t, -1, cfg.Aggregation.Precision)
	assert.Equal(t, 2, cfg.Eventfinda.Retry.MaxRetries)
	assert.True(t, cfg.Eventfinda.Breaker.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("EVENTURES_QUERY_PAGE_SIZE", "10")
	t.Setenv("EVENTURES_QUERY_FIELDS", "point,name")
	t.Setenv("EVENTURES_AGGREGATION_PRECISION", "4")
	t.Setenv("EVENTURES_NATS_ENABLED", "false")

	cfg, err := config.Load("eventures-test")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Query.PageSize)
	assert.Equal(t, []string{"point", "name"}, cfg.Query.Fields)
	assert.Equal(t, 4, cfg.Aggregation.Precision)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	setCredentials(t)
	t.Setenv("EVENTURES_QUERY_MAX_PAGES", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("query.max_pages", 5, "")
	require.NoError(t, flags.Parse([]string{"--query.max_pages=9"}))

	cfg, err := config.LoadWithFlags("eventures-test", flags)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Query.MaxPages)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("EVENTURES_EVENTFINDA_USERNAME", "")
	t.Setenv("EVENTURES_EVENTFINDA_PASSWORD", "")

	_, err := config.Load("eventures-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eventfinda.username is required")
	assert.Contains(t, err.Error(), "eventfinda.password is required")
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	cfg := &config.Config{
		Eventfinda: config.EventfindaConfig{Endpoint: "ftp://user:pw@example.com"},
		Query:      config.QueryConfig{PageSize: 50},
		NATS:       config.NATSConfig{Enabled: true},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"server.port",
		"eventfinda.endpoint",
		"query.fields",
		"query.page_size must be 1-20, got 50",
		"aggregation.lat_field",
		"nats.url is required",
	} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "pw", "credentials must not be echoed")
}
