package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("verbose"))
}

func TestNew_JSONRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", "json")

	logger.Info("configured upstream", "credentials", domain.BasicAuthCredentials{Username: "eventures", Password: "hunter2"})
	logger.Debug("dropped")

	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "dropped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	creds, ok := line["credentials"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "eventures", creds["username"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "debug", "text").Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf, "info", "json").With("request_id", "req-1")

	ctx := logging.WithLogger(context.Background(), l)
	logging.FromContext(ctx).Info("scoped")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	assert.Same(t, slog.Default(), logging.FromContext(context.Background()))
}
