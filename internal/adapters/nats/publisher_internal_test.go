package natsadapter

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventures/eventures/internal/core/domain"
)

func TestMarkerMessage(t *testing.T) {
	batch := &domain.MarkerBatch{
		RunID:       "7c1e3f8a-0b61-4d4e-9a51-2f5f3e9a6b10",
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Markers:     []domain.MarkerSpec{{Latitude: -36.85, Longitude: 174.76}},
	}

	msg, err := markerMessage(batch)
	require.NoError(t, err)
	assert.Equal(t, "eventures.markers.7c1e3f8a-0b61-4d4e-9a51-2f5f3e9a6b10", msg.Subject)
	assert.Equal(t, batch.RunID, msg.Header.Get(nats.MsgIdHdr))

	var decoded domain.MarkerBatch
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, batch.Markers, decoded.Markers)
	assert.True(t, batch.GeneratedAt.Equal(decoded.GeneratedAt))
}

func TestMarkerMessage_RequiresRunID(t *testing.T) {
	_, err := markerMessage(&domain.MarkerBatch{})
	assert.Error(t, err)
	_, err = markerMessage(nil)
	assert.Error(t, err)
}
