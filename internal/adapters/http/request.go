package http

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/eventures/eventures/internal/core/domain"
)

// searchRequest is the query string shared by the marker and location
// endpoints and the GraphQL arguments.
type searchRequest struct {
	Q         string  `query:"q" validate:"max=200"`
	Fields    string  `query:"fields" validate:"max=500"`
	Lat       string  `query:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng       string  `query:"lng" validate:"required_with=Lat,omitempty,longitude"`
	Radius    float64 `query:"radius" validate:"gte=0,lte=1000000"`
	StartDate string  `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string  `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Rows      int     `query:"rows" validate:"gte=0,lte=20"`
	Offset    int     `query:"offset" validate:"gte=0"`
	Pages     int     `query:"pages" validate:"gte=0,lte=20"`
}

// pageRequest slices the location list of one run.
type pageRequest struct {
	Limit      int `query:"limit" validate:"gte=0,lte=500"`
	PageOffset int `query:"page_offset" validate:"gte=0"`
}

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var reqValidator = newRequestValidator()

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		panic("validator translations: " + err.Error())
	}
	return &requestValidator{validate: v, trans: trans}
}

// Struct validates s and flattens violations into one readable error.
func (rv *requestValidator) Struct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(rv.trans))
	}
	return errors.New("validation error: " + strings.Join(msgs, "; "))
}

// toParams converts a validated request into search parameters.
func (r searchRequest) toParams(d QueryDefaults) (domain.QueryParameters, error) {
	p := domain.QueryParameters{
		SearchTerm:   strings.TrimSpace(r.Q),
		Fields:       splitFields(r.Fields),
		RadiusMeters: r.Radius,
		PageSize:     r.Rows,
		PageOffset:   r.Offset,
	}
	if len(p.Fields) == 0 {
		p.Fields = append([]string(nil), d.Fields...)
	}
	if p.PageSize == 0 {
		p.PageSize = d.PageSize
	}

	if r.Lat != "" {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			return p, errors.New("lat must be a number")
		}
		lng, err := strconv.ParseFloat(r.Lng, 64)
		if err != nil {
			return p, errors.New("lng must be a number")
		}
		p.Center = &domain.Coordinate{Lat: lat, Lng: lng}
	}

	var err error
	if r.StartDate != "" {
		if p.Dates.Start, err = time.Parse(domain.DateLayout, r.StartDate); err != nil {
			return p, errors.New("start_date must be YYYY-MM-DD")
		}
	}
	if r.EndDate != "" {
		if p.Dates.End, err = time.Parse(domain.DateLayout, r.EndDate); err != nil {
			return p, errors.New("end_date must be YYYY-MM-DD")
		}
	}
	return p, nil
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
