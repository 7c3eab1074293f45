package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/ports"
	"github.com/eventures/eventures/internal/pkg/logging"
	"github.com/eventures/eventures/internal/pkg/metrics"
	"github.com/eventures/eventures/internal/pkg/telemetry"
)

// LocationServiceConfig tunes pagination, retries and caching.
type LocationServiceConfig struct {
	MaxPages             int           // pages fetched per run (default 5)
	MaxRetries           int           // retries per page for transient failures (default 2)
	RetryInitialInterval time.Duration // first backoff delay (default 500ms)
	RetryMaxInterval     time.Duration // backoff ceiling (default 5s)
	RequestsPerSecond    float64       // upstream pacing; 0 disables it
	Burst                int
	CacheTTL             time.Duration // 0 disables the response cache
}

// DefaultLocationServiceConfig returns the production defaults.
func DefaultLocationServiceConfig() LocationServiceConfig {
	return LocationServiceConfig{
		MaxPages:             5,
		MaxRetries:           2,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RequestsPerSecond:    2,
		Burst:                1,
		CacheTTL:             5 * time.Minute,
	}
}

// LocationService runs the ingestion pipeline: it pages through the
// upstream API, aggregates every record into unique locations and hands
// the resulting markers to an optional publisher.
//
// A LocationService is safe for concurrent use. Each run owns its state.
type LocationService struct {
	builder    ports.QueryBuilder
	fetcher    ports.PageFetcher
	parser     ports.PageParser
	aggregator *LocationAggregator
	cache      ports.CacheService
	publisher  ports.MarkerPublisher
	limiter    *rate.Limiter
	cfg        LocationServiceConfig
	tracer     trace.Tracer
	now        func() time.Time
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*LocationService)

// WithCache enables the response cache.
func WithCache(c ports.CacheService) ServiceOption {
	return func(s *LocationService) { s.cache = c }
}

// WithPublisher publishes every marker batch.
func WithPublisher(p ports.MarkerPublisher) ServiceOption {
	return func(s *LocationService) { s.publisher = p }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *LocationService) { s.now = now }
}

// NewLocationService creates a new LocationService.
func NewLocationService(
	builder ports.QueryBuilder,
	fetcher ports.PageFetcher,
	parser ports.PageParser,
	aggregator *LocationAggregator,
	cfg LocationServiceConfig,
	opts ...ServiceOption,
) *LocationService {
	def := DefaultLocationServiceConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxInterval < cfg.RetryInitialInterval {
		cfg.RetryMaxInterval = max(def.RetryMaxInterval, cfg.RetryInitialInterval)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	s := &LocationService{
		builder:    builder,
		fetcher:    fetcher,
		parser:     parser,
		aggregator: aggregator,
		cfg:        cfg,
		tracer:     telemetry.Tracer(),
		now:        time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOption adjusts a single run.
type RunOption func(*runSettings)

type runSettings struct {
	maxPages int
	noCache  bool
}

// WithMaxPages caps the pages fetched by one run.
func WithMaxPages(n int) RunOption {
	return func(r *runSettings) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// WithoutCache forces a fresh upstream run.
func WithoutCache() RunOption {
	return func(r *runSettings) { r.noCache = true }
}

// MaxPages returns the default page cap.
func (s *LocationService) MaxPages() int { return s.cfg.MaxPages }

// Collect pages through the upstream API and aggregates every record into
// unique locations. On any error no partial report is returned.
func (s *LocationService) Collect(ctx context.Context, params domain.QueryParameters, opts ...RunOption) (*domain.LocationReport, error) {
	report, _, err := s.collect(ctx, params, opts...)
	return report, err
}

// collect also reports whether the result was served from the cache.
func (s *LocationService) collect(ctx context.Context, params domain.QueryParameters, opts ...RunOption) (report *domain.LocationReport, hit bool, err error) {
	run := runSettings{maxPages: s.cfg.MaxPages}
	for _, opt := range opts {
		opt(&run)
	}

	runID := uuid.NewString()
	logger := logging.FromContext(ctx).With("run_id", runID)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, telemetry.SpanCollect, trace.WithAttributes(
		attribute.String(telemetry.AttrRunID, runID),
		attribute.Int(telemetry.AttrPageSize, params.PageSize),
	))
	defer func() {
		if err != nil {
			stage := domain.StageOf(err)
			metrics.Runs.WithLabelValues("failure", stage).Inc()
			span.SetAttributes(attribute.String(telemetry.AttrStage, stage))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(ctx, "ingestion run failed", "stage", stage, "error", err)
		}
		span.End()
	}()

	first, err := s.builder.BuildQuery(params)
	if err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("locations:%d:%s", run.maxPages, first.URL)
	if cached := s.cachedReport(ctx, cacheKey, run); cached != nil {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		metrics.Runs.WithLabelValues("cached", "").Inc()
		logger.DebugContext(ctx, "serving cached report", "cached_run_id", cached.RunID)
		return cached, true, nil
	}

	records, pages, err := s.fetchAll(ctx, params, run.maxPages, logger)
	if err != nil {
		return nil, false, err
	}

	tally := s.aggregator.NewTally()
	for _, rec := range records {
		tally.Add(rec)
	}
	locations := tally.Result()

	metrics.RecordsParsed.Add(float64(tally.Seen()))
	metrics.RecordsSkipped.WithLabelValues("no_coordinate").Add(float64(tally.Skipped()))
	metrics.UniqueLocations.Set(float64(len(locations)))
	metrics.Runs.WithLabelValues("success", "").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int(telemetry.AttrPages, pages),
		attribute.Int(telemetry.AttrRecords, tally.Seen()),
		attribute.Int(telemetry.AttrLocations, len(locations)),
	)
	logger.InfoContext(ctx, "ingestion run complete",
		"pages", pages,
		"records", tally.Seen(),
		"skipped", tally.Skipped(),
		"locations", len(locations),
		"duration", time.Since(start).String(),
	)

	report = &domain.LocationReport{
		RunID:       runID,
		GeneratedAt: s.now().UTC(),
		Query:       params,
		Pages:       pages,
		Records:     tally.Seen(),
		Skipped:     tally.Skipped(),
		Locations:   locations,
		Bounds:      domain.BoundsOf(locations),
	}
	s.storeReport(ctx, cacheKey, report, logger)
	return report, false, nil
}

// Markers runs Collect and projects the result into map markers. The batch
// is published when a publisher is configured and the run fetched fresh
// data; a cached report was published by the run that produced it. Publish
// failures are logged.
func (s *LocationService) Markers(ctx context.Context, params domain.QueryParameters, opts ...RunOption) (*domain.MarkerBatch, error) {
	report, cached, err := s.collect(ctx, params, opts...)
	if err != nil {
		return nil, err
	}

	batch := &domain.MarkerBatch{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		Markers:     ProjectMarkers(report.Locations),
		Bounds:      report.Bounds,
	}

	if s.publisher != nil && !cached {
		pctx, span := s.tracer.Start(ctx, telemetry.SpanPublish, trace.WithAttributes(
			attribute.String(telemetry.AttrRunID, batch.RunID),
		))
		if err := s.publisher.PublishMarkers(pctx, batch); err != nil {
			span.RecordError(err)
			logging.FromContext(ctx).WarnContext(ctx, "publish markers failed", "run_id", batch.RunID, "error", err)
		}
		span.End()
	}
	return batch, nil
}

// fetchAll walks the pages sequentially and returns their records in page
// order. It stops on an empty or short page, at the envelope total or after
// maxPages pages.
func (s *LocationService) fetchAll(ctx context.Context, params domain.QueryParameters, maxPages int, logger *slog.Logger) ([]domain.RawEventRecord, int, error) {
	var records []domain.RawEventRecord
	offset := params.PageOffset
	pages := 0

	for pages < maxPages {
		req, err := s.builder.BuildQuery(params.WithOffset(offset))
		if err != nil {
			return nil, pages, err
		}

		page, err := s.fetchPage(ctx, req, logger)
		if err != nil {
			return nil, pages, err
		}
		pages++

		for rec := range page.Records() {
			records = append(records, rec)
		}

		n := page.Len()
		if n == 0 || n < params.PageSize {
			break
		}
		offset += params.PageSize
		if total, ok := page.Total(); ok && offset >= total {
			break
		}
	}
	return records, pages, nil
}

func (s *LocationService) fetchPage(ctx context.Context, req domain.RequestDescriptor, logger *slog.Logger) (ports.Page, error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanPage, trace.WithAttributes(
		attribute.Int(telemetry.AttrPageOffset, req.PageOffset),
		attribute.Int(telemetry.AttrPageSize, req.PageSize),
	))
	defer span.End()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &domain.FetchError{Kind: domain.ErrCancelled, URL: req.URL, Err: err}
		}
	}

	body, err := s.fetchWithRetry(ctx, req, logger)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	page, err := s.parser.Parse(body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrPageItems, page.Len()))
	return page, nil
}

// fetchWithRetry retries transient fetch failures with exponential backoff.
// Anything else is returned on first sight.
func (s *LocationService) fetchWithRetry(ctx context.Context, req domain.RequestDescriptor, logger *slog.Logger) ([]byte, error) {
	var body []byte
	op := func() error {
		b, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			var fe *domain.FetchError
			if errors.As(err, &fe) && fe.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if s.cfg.MaxRetries > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = s.cfg.RetryInitialInterval
		eb.MaxInterval = s.cfg.RetryMaxInterval
		eb.MaxElapsedTime = 0
		b = backoff.WithMaxRetries(eb, uint64(s.cfg.MaxRetries))
	}
	policy := backoff.WithContext(b, ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "retrying page fetch", "offset", req.PageOffset, "wait", wait.String(), "error", err)
	})
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) && ctx.Err() != nil {
			return nil, &domain.FetchError{Kind: domain.ErrCancelled, URL: req.URL, Err: err}
		}
		return nil, err
	}
	return body, nil
}

func (s *LocationService) cachedReport(ctx context.Context, key string, run runSettings) *domain.LocationReport {
	if s.cache == nil || s.cfg.CacheTTL <= 0 || run.noCache {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("locations").Inc()
		return nil
	}
	var report domain.LocationReport
	if err := json.Unmarshal(data, &report); err != nil {
		metrics.CacheMisses.WithLabelValues("locations").Inc()
		return nil
	}
	metrics.CacheHits.WithLabelValues("locations").Inc()
	return &report
}

func (s *LocationService) storeReport(ctx context.Context, key string, report *domain.LocationReport, logger *slog.Logger) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.WarnContext(ctx, "encode report for cache", "error", err)
		return
	}
	ttl := max(int(s.cfg.CacheTTL/time.Second), 1)
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		logger.WarnContext(ctx, "cache report", "error", err)
	}
}
