package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/core/usecases"
	"github.com/eventures/eventures/internal/pkg/config"
)

// searchFlags are the per-run search options. Flags named after a config
// key ("log.level", "nats.enabled") override that key.
type searchFlags struct {
	q         string
	point     string
	radius    float64
	startDate string
	endDate   string
	fields    []string
	rows      int
	offset    int
	pages     int
	out       string
	noCache   bool
}

func newFlagSet() (*pflag.FlagSet, *searchFlags) {
	sf := &searchFlags{}
	fs := pflag.NewFlagSet("ingestor", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVar(&sf.q, "q", "", "free-text search term")
	fs.StringVar(&sf.point, "point", "", `search center as "lat,lng"`)
	fs.Float64Var(&sf.radius, "radius", 0, "search radius in metres (requires --point)")
	fs.StringVar(&sf.startDate, "start-date", "", "earliest event date, YYYY-MM-DD")
	fs.StringVar(&sf.endDate, "end-date", "", "latest event date, YYYY-MM-DD")
	fs.StringSliceVar(&sf.fields, "fields", nil, "event fields to request (default from config)")
	fs.IntVar(&sf.rows, "rows", 0, "events per upstream page, 1-20 (default from config)")
	fs.IntVar(&sf.offset, "offset", 0, "upstream offset of the first page")
	fs.IntVar(&sf.pages, "pages", 0, "maximum upstream pages to fetch (default from config)")
	fs.StringVarP(&sf.out, "out", "o", "-", `marker batch destination, "-" for stdout`)
	fs.BoolVar(&sf.noCache, "no-cache", false, "skip the response cache")

	fs.String("log.level", "", "log level: debug, info, warn, error")
	fs.String("log.format", "", "log format: json or text")
	fs.Bool("nats.enabled", false, "publish the marker batch to NATS")
	return fs, sf
}

// params converts the flags into search parameters, filling unset values
// from configuration.
func (sf *searchFlags) params(cfg *config.Config) (domain.QueryParameters, error) {
	p := domain.QueryParameters{
		SearchTerm:   strings.TrimSpace(sf.q),
		Fields:       append([]string(nil), cfg.Query.Fields...),
		RadiusMeters: sf.radius,
		PageSize:     cfg.Query.PageSize,
		PageOffset:   sf.offset,
	}
	if len(sf.fields) > 0 {
		p.Fields = sf.fields
	}
	if sf.rows != 0 {
		p.PageSize = sf.rows
	}

	if sf.point != "" {
		c, err := parsePoint(sf.point)
		if err != nil {
			return p, err
		}
		p.Center = &c
	}

	var err error
	if sf.startDate != "" {
		if p.Dates.Start, err = time.Parse(domain.DateLayout, sf.startDate); err != nil {
			return p, fmt.Errorf("--start-date must be YYYY-MM-DD, got %q", sf.startDate)
		}
	}
	if sf.endDate != "" {
		if p.Dates.End, err = time.Parse(domain.DateLayout, sf.endDate); err != nil {
			return p, fmt.Errorf("--end-date must be YYYY-MM-DD, got %q", sf.endDate)
		}
	}
	return p, nil
}

// runOptions returns the per-run overrides.
func (sf *searchFlags) runOptions() []usecases.RunOption {
	var opts []usecases.RunOption
	if sf.pages > 0 {
		opts = append(opts, usecases.WithMaxPages(sf.pages))
	}
	if sf.noCache {
		opts = append(opts, usecases.WithoutCache())
	}
	return opts
}

func parsePoint(s string) (domain.Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Coordinate{}, fmt.Errorf(`--point must be "lat,lng", got %q`, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("--point latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("--point longitude: %w", err)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, nil
}
