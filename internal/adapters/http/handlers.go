package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/usecases"
	"github.com/eventures/eventures/internal/pkg/geospatial"
)

// LocationView is one unique location as served to map clients.
type LocationView struct {
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Count          int      `json:"count"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// LocationsResponse is the body of GET /v1/locations.
type LocationsResponse struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Pages       int            `json:"pages"`
	Records     int            `json:"records"`
	Skipped     int            `json:"skipped"`
	Bounds      *domain.Bounds `json:"bounds,omitempty"`
	SearchArea  *domain.Bounds `json:"search_area,omitempty"`
	Data        []LocationView `json:"data"`
	Pagination  Pagination     `json:"pagination"`
}

// parseSearch reads and validates the shared search query.
func parseSearch(c *fiber.Ctx, d QueryDefaults) (domain.QueryParameters, []usecases.RunOption, error) {
	var req searchRequest
	if err := c.QueryParser(&req); err != nil {
		return domain.QueryParameters{}, nil, err
	}
	return searchFromRequest(req, d, strings.Contains(c.Get(fiber.HeaderCacheControl), "no-cache"))
}

func searchFromRequest(req searchRequest, d QueryDefaults, fresh bool) (domain.QueryParameters, []usecases.RunOption, error) {
	if err := reqValidator.Struct(req); err != nil {
		return domain.QueryParameters{}, nil, err
	}
	params, err := req.toParams(d)
	if err != nil {
		return domain.QueryParameters{}, nil, err
	}

	pages := req.Pages
	if pages == 0 {
		pages = d.MaxPages
	}
	opts := []usecases.RunOption{usecases.WithMaxPages(pages)}
	if fresh {
		opts = append(opts, usecases.WithoutCache())
	}
	return params, opts, nil
}

// locationViews adds the distance from the search center when there is one.
func locationViews(result domain.AggregationResult, center *domain.Coordinate) []LocationView {
	views := make([]LocationView, 0, len(result))
	for _, loc := range result {
		v := LocationView{Lat: loc.Lat, Lng: loc.Lng, Count: loc.Count}
		if center != nil {
			d := geospatial.Distance(*center, domain.Coordinate{Lat: loc.Lat, Lng: loc.Lng})
			v.DistanceMeters = &d
		}
		views = append(views, v)
	}
	return views
}

// searchArea is the box covered by a radius search.
func searchArea(p domain.QueryParameters) *domain.Bounds {
	if p.Center == nil || p.RadiusMeters <= 0 {
		return nil
	}
	b := geospatial.SearchArea(*p.Center, p.RadiusMeters)
	return &b
}

// MarkersHandler runs the pipeline and returns one marker per unique location.
func MarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, opts, err := parseSearch(c, deps.Defaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		batch, err := deps.Locations.Markers(c.UserContext(), params, opts...)
		if err != nil {
			return errPipeline(c, err)
		}

		c.Locals("run_id", batch.RunID)
		return c.JSON(batch)
	}
}

// LocationsHandler runs the pipeline and returns unique locations with
// their event counts, paginated.
func LocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, opts, err := parseSearch(c, deps.Defaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		var page pageRequest
		if err := c.QueryParser(&page); err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := reqValidator.Struct(page); err != nil {
			return errBadRequest(c, err.Error())
		}
		if page.Limit == 0 {
			page.Limit = 100
		}

		report, err := deps.Locations.Collect(c.UserContext(), params, opts...)
		if err != nil {
			return errPipeline(c, err)
		}
		c.Locals("run_id", report.RunID)

		data, pg := paginate(locationViews(report.Locations, params.Center), page.PageOffset, page.Limit)
		SetLinkHeaders(c, pg)
		return c.JSON(LocationsResponse{
			RunID:       report.RunID,
			GeneratedAt: report.GeneratedAt,
			Pages:       report.Pages,
			Records:     report.Records,
			Skipped:     report.Skipped,
			Bounds:      report.Bounds,
			SearchArea:  searchArea(params),
			Data:        data,
			Pagination:  pg,
		})
	}
}
