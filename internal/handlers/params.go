package handlers

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"ecommerce-analytics/internal/errors"
	"ecommerce-analytics/internal/filter"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

type transactionParams struct {
	Limit  int `query:"limit" validate:"gte=1,lte=1000"`
	Offset int `query:"offset" validate:"gte=0"`
}

type customerParams struct {
	Limit   int      `query:"limit" validate:"gte=1,lte=1000"`
	Offset  int      `query:"offset" validate:"gte=0"`
	Country string   `query:"country" validate:"max=64"`
	Segment string   `query:"rfm_segment" validate:"max=64"`
	MinLTV  *float64 `query:"min_ltv" validate:"omitempty,gte=0"`
}

type productParams struct {
	Limit     int      `query:"limit" validate:"gte=1,lte=500"`
	Offset    int      `query:"offset" validate:"gte=0"`
	Category  string   `query:"category" validate:"max=64"`
	MinRating *float64 `query:"min_rating" validate:"omitempty,gte=0,lte=5"`
}

type timeSeriesParams struct {
	Granularity string `query:"granularity" validate:"oneof=day week month"`
}

type topProductParams struct {
	Limit  int    `query:"limit" validate:"gte=1,lte=100"`
	Metric string `query:"metric" validate:"oneof=revenue orders margin"`
}

type forecastParams struct {
	DaysAhead int    `query:"days_ahead" validate:"gte=7,lte=180"`
	Metric    string `query:"metric" validate:"oneof=revenue orders"`
}

type clusterParams struct {
	NClusters int `query:"n_clusters" validate:"gte=3,lte=10"`
}

type churnParams struct {
	Threshold float64 `query:"threshold" validate:"gte=0.5,lte=0.9"`
	Limit     int     `query:"limit" validate:"gte=1,lte=500"`
}

type recommendParams struct {
	ProductID string `query:"product_id" validate:"required,max=64"`
	TopN      int    `query:"top_n" validate:"gte=5,lte=20"`
}

type demandParams struct {
	TopN int `query:"top_n" validate:"gte=1,lte=100"`
}

type anomalyParams struct {
	Contamination float64 `query:"contamination" validate:"gte=0.01,lte=0.1"`
	DaysBack      int     `query:"days_back" validate:"gte=30,lte=365"`
}

// query reads typed values out of a URL query, remembering the first
// malformed one so handlers can check once at the end.
type query struct {
	values url.Values
	err    error
}

func newQuery(v url.Values) *query {
	return &query{values: v}
}

func (q *query) fail(name, want string) {
	if q.err == nil {
		q.err = errors.BadRequest("Invalid query parameter").
			WithDetails(fmt.Sprintf("%s must be %s", name, want))
	}
}

func (q *query) str(name, def string) string {
	if v := strings.TrimSpace(q.values.Get(name)); v != "" {
		return v
	}
	return def
}

func (q *query) integer(name string, def int) int {
	raw := strings.TrimSpace(q.values.Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "an integer")
		return def
	}
	return n
}

func (q *query) number(name string, def float64) float64 {
	if v := q.optFloat(name); v != nil {
		return *v
	}
	return def
}

func (q *query) optFloat(name string) *float64 {
	raw := strings.TrimSpace(q.values.Get(name))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "a number")
		return nil
	}
	return &f
}

func (q *query) date(name string) (time.Time, bool) {
	raw := strings.TrimSpace(q.values.Get(name))
	if raw == "" {
		return time.Time{}, false
	}
	t, err := filter.ParseDate(raw)
	if err != nil {
		q.fail(name, "a date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return t, true
}

// list splits comma separated values and drops empties.
func (q *query) list(name string) []string {
	var out []string
	for _, raw := range q.values[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// filter builds a transaction filter from start_date, end_date, preset and
// the facet parameters. Explicit dates override the preset window.
func (q *query) filter(now time.Time) filter.Filter {
	var f filter.Filter
	if preset := q.str("preset", ""); preset != "" {
		f = filter.Preset(preset, now)
	}
	if start, ok := q.date("start_date"); ok {
		f.Start = start
	}
	if end, ok := q.date("end_date"); ok {
		f.End = end
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) && q.err == nil {
		q.err = errors.Validation("Invalid date range").WithDetails("start_date must not be after end_date")
	}

	f.Countries = q.list("country")
	f.Regions = q.list("region")
	f.Categories = q.list("category")
	f.Subcategories = q.list("subcategory")
	f.CustomerSegments = q.list("customer_segment")
	f.PaymentMethods = q.list("payment_method")
	f.DeviceTypes = q.list("device_type")
	f.TrafficSources = q.list("traffic_source")
	f.MinPrice = q.optFloat("min_price")
	f.MaxPrice = q.optFloat("max_price")
	return f
}

// check returns the first parse error, then runs struct validation on
// params.
func (q *query) check(params any) error {
	if q.err != nil {
		return q.err
	}
	if params == nil {
		return nil
	}
	if err := validate.Struct(params); err != nil {
		return errors.FromValidation(err)
	}
	return nil
}
