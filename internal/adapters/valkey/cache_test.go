package valkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventures/eventures/internal/adapters/valkey"
)

func TestCache_KeyPrefix(t *testing.T) {
	c := valkey.NewWithClient(nil, "eventures:")
	assert.Equal(t, "eventures:locations:5:https://api.test/events.json", c.Key("locations:5:https://api.test/events.json"))
}
