package eventfinda

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/ports"
	"github.com/eventures/eventures/internal/pkg/metrics"
)

// BreakerConfig configures BreakerFetcher.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state count reset
	Timeout          time.Duration // open -> half-open
	FailureThreshold uint32        // consecutive transient failures that open the circuit
}

// BreakerFetcher guards a PageFetcher with a circuit breaker. Only transient
// upstream failures count against the breaker; caller cancellation and
// client errors such as 401 do not.
type BreakerFetcher struct {
	next ports.PageFetcher
	cb   *gobreaker.CircuitBreaker[[]byte]
	name string
}

// NewBreakerFetcher wraps next.
func NewBreakerFetcher(next ports.PageFetcher, cfg BreakerConfig) *BreakerFetcher {
	if cfg.Name == "" {
		cfg.Name = "eventfinda"
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var fe *domain.FetchError
			if errors.As(err, &fe) {
				return !fe.Retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerFetcher{next: next, cb: cb, name: cfg.Name}
}

// Fetch forwards to the wrapped fetcher unless the circuit is open.
func (b *BreakerFetcher) Fetch(ctx context.Context, req domain.RequestDescriptor) ([]byte, error) {
	body, err := b.cb.Execute(func() ([]byte, error) {
		return b.next.Fetch(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.FetchErrors.WithLabelValues("circuit_open").Inc()
		return nil, &domain.FetchError{Kind: domain.ErrCircuitOpen, URL: req.URL, Err: err}
	}
	return body, err
}

// State returns the breaker state for readiness reporting.
func (b *BreakerFetcher) State() string {
	return b.cb.State().String()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
