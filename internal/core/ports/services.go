package ports

import (
	"context"
	"iter"

	"github.com/eventures/eventures/internal/core/domain"
)

// QueryBuilder encodes search parameters into a request for one page.
type QueryBuilder interface {
	BuildQuery(params domain.QueryParameters) (domain.RequestDescriptor, error)
}

// PageFetcher downloads the raw bytes of one page.
type PageFetcher interface {
	Fetch(ctx context.Context, req domain.RequestDescriptor) ([]byte, error)
}

// Page is one parsed response page.
type Page interface {
	// Len returns the number of raw items in the result array,
	// including items that will be skipped as malformed.
	Len() int
	// Total returns the number of matching items across all pages,
	// when the envelope reports it.
	Total() (int, bool)
	// Records yields the page's records once.
	Records() iter.Seq[domain.RawEventRecord]
}

// PageParser turns raw response bytes into a Page.
type PageParser interface {
	Parse(body []byte) (Page, error)
}

// MarkerPublisher hands marker batches to rendering collaborators.
type MarkerPublisher interface {
	PublishMarkers(ctx context.Context, batch *domain.MarkerBatch) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
