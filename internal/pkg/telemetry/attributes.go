package telemetry

// Span names used for pipeline instrumentation.
const (
	SpanCollect = "locations.collect"
	SpanPage    = "locations.page"
	SpanPublish = "markers.publish"
)

// Span attribute keys.
const (
	AttrRunID      = "eventures.run_id"
	AttrPageOffset = "eventures.page.offset"
	AttrPageSize   = "eventures.page.size"
	AttrPageItems  = "eventures.page.items"
	AttrPages      = "eventures.pages"
	AttrRecords    = "eventures.records"
	AttrLocations  = "eventures.locations"
	AttrCacheHit   = "eventures.cache_hit"
	AttrStage      = "eventures.error.stage"
)
