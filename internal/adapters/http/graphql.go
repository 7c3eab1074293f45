package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/eventures/eventures/internal/core/domain"
)

// gqlError carries the REST error code and pipeline stage as GraphQL
// error extensions.
type gqlError struct {
	msg   string
	code  string
	stage string
}

func (e *gqlError) Error() string { return e.msg }

func (e *gqlError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.code}
	if e.stage != "" {
		ext["stage"] = e.stage
	}
	return ext
}

// searchArgs are the pipeline arguments shared by every query field.
func searchArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"q":         &graphql.ArgumentConfig{Type: graphql.String},
		"fields":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
		"lat":       &graphql.ArgumentConfig{Type: graphql.Float},
		"lng":       &graphql.ArgumentConfig{Type: graphql.Float},
		"radius":    &graphql.ArgumentConfig{Type: graphql.Float, Description: "Search radius in metres"},
		"startDate": &graphql.ArgumentConfig{Type: graphql.String, Description: "YYYY-MM-DD"},
		"endDate":   &graphql.ArgumentConfig{Type: graphql.String, Description: "YYYY-MM-DD"},
		"rows":      &graphql.ArgumentConfig{Type: graphql.Int},
		"offset":    &graphql.ArgumentConfig{Type: graphql.Int},
		"pages":     &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

// searchRequestFromArgs maps GraphQL arguments onto the REST query so both
// surfaces share validation.
func searchRequestFromArgs(args map[string]interface{}) searchRequest {
	var req searchRequest
	if v, ok := args["q"].(string); ok {
		req.Q = v
	}
	if v, ok := args["fields"].([]interface{}); ok {
		fields := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
		req.Fields = strings.Join(fields, ",")
	}
	if v, ok := args["lat"].(float64); ok {
		req.Lat = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v, ok := args["lng"].(float64); ok {
		req.Lng = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v, ok := args["radius"].(float64); ok {
		req.Radius = v
	}
	if v, ok := args["startDate"].(string); ok {
		req.StartDate = v
	}
	if v, ok := args["endDate"].(string); ok {
		req.EndDate = v
	}
	if v, ok := args["rows"].(int); ok {
		req.Rows = v
	}
	if v, ok := args["offset"].(int); ok {
		req.Offset = v
	}
	if v, ok := args["pages"].(int); ok {
		req.Pages = v
	}
	return req
}

// buildSchema creates the GraphQL schema wired to the location service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	markerBatchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MarkerBatch",
		Fields: graphql.Fields{
			"run_id":       &graphql.Field{Type: graphql.String},
			"generated_at": &graphql.Field{Type: graphql.DateTime},
			"markers":      &graphql.Field{Type: graphql.NewList(markerType)},
			"bounds":       &graphql.Field{Type: boundsType},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"lat":             &graphql.Field{Type: graphql.Float},
			"lng":             &graphql.Field{Type: graphql.Float},
			"count":           &graphql.Field{Type: graphql.Int},
			"distance_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	locationPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationPage",
		Fields: graphql.Fields{
			"run_id":       &graphql.Field{Type: graphql.String},
			"generated_at": &graphql.Field{Type: graphql.DateTime},
			"pages":        &graphql.Field{Type: graphql.Int},
			"records":      &graphql.Field{Type: graphql.Int},
			"skipped":      &graphql.Field{Type: graphql.Int},
			"bounds":       &graphql.Field{Type: boundsType},
			"search_area":  &graphql.Field{Type: boundsType},
			"data":         &graphql.Field{Type: graphql.NewList(locationType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"markers": &graphql.Field{
				Type:        markerBatchType,
				Description: "Map markers for every unique event location",
				Args:        searchArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					params, opts, err := searchFromRequest(searchRequestFromArgs(p.Args), deps.Defaults, false)
					if err != nil {
						return nil, &gqlError{msg: err.Error(), code: "bad_request"}
					}
					batch, err := deps.Locations.Markers(p.Context, params, opts...)
					if err != nil {
						return nil, pipelineGQLError(err)
					}
					return batch, nil
				},
			},
			"locations": &graphql.Field{
				Type:        locationPageType,
				Description: "Unique event locations with event counts",
				Args:        searchArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					params, opts, err := searchFromRequest(searchRequestFromArgs(p.Args), deps.Defaults, false)
					if err != nil {
						return nil, &gqlError{msg: err.Error(), code: "bad_request"}
					}
					report, err := deps.Locations.Collect(p.Context, params, opts...)
					if err != nil {
						return nil, pipelineGQLError(err)
					}
					return LocationsResponse{
						RunID:       report.RunID,
						GeneratedAt: report.GeneratedAt,
						Pages:       report.Pages,
						Records:     report.Records,
						Skipped:     report.Skipped,
						Bounds:      report.Bounds,
						SearchArea:  searchArea(params),
						Data:        locationViews(report.Locations, params.Center),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func pipelineGQLError(err error) error {
	_, code, msg := classify(err)
	return &gqlError{msg: msg, code: code, stage: domain.StageOf(err)}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
