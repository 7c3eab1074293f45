// Package bootstrap assembles the ingestion pipeline from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eventures/eventures/internal/adapters/eventfinda"
	natsadapter "github.com/eventures/eventures/internal/adapters/nats"
	"github.com/eventures/eventures/internal/adapters/valkey"
	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/ports"
	"github.com/eventures/eventures/internal/core/usecases"
	"github.com/eventures/eventures/internal/pkg/config"
)

// Pipeline is the configured location service plus the optional
// collaborators it was given.
type Pipeline struct {
	Service   *usecases.LocationService
	Breaker   *eventfinda.BreakerFetcher // nil when the breaker is disabled
	Cache     *valkey.Cache
	Publisher *natsadapter.Publisher
}

// Close releases the optional collaborators.
func (p *Pipeline) Close() {
	if p.Publisher != nil {
		p.Publisher.Close()
	}
	if p.Cache != nil {
		p.Cache.Close()
	}
}

// NewFetcher builds the authenticated client, wrapped in a circuit breaker
// when enabled.
func NewFetcher(cfg *config.Config) ports.PageFetcher {
	ef := cfg.Eventfinda
	client := eventfinda.NewClient(eventfinda.ClientConfig{
		Credentials: domain.BasicAuthCredentials{
			Username: ef.Username,
			Password: ef.Password,
		},
		Timeout:      time.Duration(ef.Timeout) * time.Second,
		MaxBodyBytes: ef.MaxBodyBytes,
		UserAgent:    ef.UserAgent,
	})
	if !ef.Breaker.Enabled {
		return client
	}
	return eventfinda.NewBreakerFetcher(client, eventfinda.BreakerConfig{
		Name:             "eventfinda",
		MaxRequests:      ef.Breaker.MaxRequests,
		Interval:         time.Duration(ef.Breaker.Interval) * time.Second,
		Timeout:          time.Duration(ef.Breaker.Timeout) * time.Second,
		FailureThreshold: ef.Breaker.FailureThreshold,
	})
}

// ServiceConfig maps configuration onto the service's run settings.
func ServiceConfig(cfg *config.Config) usecases.LocationServiceConfig {
	ef := cfg.Eventfinda
	return usecases.LocationServiceConfig{
		MaxPages:             cfg.Query.MaxPages,
		MaxRetries:           ef.Retry.MaxRetries,
		RetryInitialInterval: time.Duration(ef.Retry.InitialIntervalMs) * time.Millisecond,
		RetryMaxInterval:     time.Duration(ef.Retry.MaxIntervalMs) * time.Millisecond,
		RequestsPerSecond:    ef.RequestsPerSecond,
		Burst:                ef.Burst,
		CacheTTL:             time.Duration(cfg.Cache.TTL) * time.Second,
	}
}

// NewPipeline wires the query builder, fetcher, parser and aggregator.
// Valkey and NATS are optional: when enabled but unreachable the pipeline
// runs without them and a warning is logged.
func NewPipeline(cfg *config.Config, fetcher ports.PageFetcher) (*Pipeline, error) {
	agg := usecases.NewLocationAggregator(usecases.AggregatorConfig{
		LatField: cfg.Aggregation.LatField,
		LngField: cfg.Aggregation.LngField,
	}.RoundTo(cfg.Aggregation.Precision))

	builder, err := eventfinda.NewQueryBuilder(cfg.Eventfinda.Endpoint,
		eventfinda.WithFieldScope(cfg.Eventfinda.FieldScope),
		eventfinda.WithRequiredFields(eventfinda.RequiredFieldsFor(agg.Config().LatField, agg.Config().LngField)...),
	)
	if err != nil {
		return nil, fmt.Errorf("query builder: %w", err)
	}
	if fetcher == nil {
		fetcher = NewFetcher(cfg)
	}

	p := &Pipeline{}
	if bf, ok := fetcher.(*eventfinda.BreakerFetcher); ok {
		p.Breaker = bf
	}
	var opts []usecases.ServiceOption

	if cfg.Valkey.Enabled && cfg.Cache.TTL > 0 {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable, running without cache", "addr", cfg.Valkey.Addr, "error", err)
		} else {
			p.Cache = cache
			opts = append(opts, usecases.WithCache(cache))
		}
	}

	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, time.Duration(cfg.NATS.StreamMaxAge)*time.Hour)
		if err != nil {
			slog.Warn("nats unavailable, markers will not be published", "url", cfg.NATS.URL, "error", err)
		} else {
			p.Publisher = pub
			opts = append(opts, usecases.WithPublisher(pub))
		}
	}

	p.Service = usecases.NewLocationService(builder, fetcher, eventfinda.Parser{}, agg, ServiceConfig(cfg), opts...)
	return p, nil
}
