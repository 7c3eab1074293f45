package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/eventures/eventures/internal/adapters/valkey"
	"github.com/eventures/eventures/internal/core/usecases"
)

// QueryDefaults fill in search parameters a request leaves unset.
type QueryDefaults struct {
	Fields   []string
	PageSize int
	MaxPages int
}

// BreakerState reports the upstream circuit breaker state.
type BreakerState interface {
	State() string
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Locations      *usecases.LocationService
	Defaults       QueryDefaults
	Breaker        BreakerState // optional
	NATS           *nats.Conn
	Cache          *valkey.Cache
	RequestTimeout time.Duration
	CacheMaxAge    time.Duration // Cache-Control max-age for pipeline responses
	RateLimit      int           // requests per minute per IP, 0 = default
	Version        string
}
