// Package filter composes transaction predicates. The same Filter value is
// evaluated in memory by Match and rendered to a bound-parameter SQL clause
// by Where, so the two paths cannot drift apart.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"ecommerce-analytics/internal/models"
)

const DateLayout = "2006-01-02"

// Presets accepted by Preset, in display order.
const (
	Last7Days  = "last_7_days"
	Last30Days = "last_30_days"
	Last90Days = "last_90_days"
	LastYear   = "last_year"
	AllTime    = "all_time"
)

var presetDays = map[string]int{
	Last7Days:  7,
	Last30Days: 30,
	Last90Days: 90,
	LastYear:   365,
	AllTime:    3650,
}

var Presets = []string{Last7Days, Last30Days, Last90Days, LastYear, AllTime}

// Filter is a conjunction of optional predicates over transactions. Empty
// slices and zero bounds impose no restriction. End is inclusive of the
// whole calendar day.
type Filter struct {
	Start            time.Time
	End              time.Time
	Countries        []string
	Regions          []string
	Categories       []string
	Subcategories    []string
	CustomerSegments []string
	PaymentMethods   []string
	DeviceTypes      []string
	TrafficSources   []string
	MinPrice         *float64
	MaxPrice         *float64
}

// Preset builds a date-only filter covering the named window ending at now.
// Unknown names fall back to the last 90 days.
func Preset(name string, now time.Time) Filter {
	days, ok := presetDays[name]
	if !ok {
		days = presetDays[Last90Days]
	}
	return Filter{Start: now.AddDate(0, 0, -days), End: now}
}

// ParseDate accepts YYYY-MM-DD and returns midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// endExclusive is the first instant after the End day.
func (f Filter) endExclusive() time.Time {
	e := f.End.UTC()
	return time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func (f Filter) startInclusive() time.Time {
	s := f.Start.UTC()
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
}

// Previous is the window of equal length ending the day before Start, with
// the same facet predicates. It needs both dates set.
func (f Filter) Previous() (Filter, bool) {
	if f.Start.IsZero() || f.End.IsZero() {
		return Filter{}, false
	}
	start, end := f.startInclusive(), f.endExclusive()
	if !end.After(start) {
		return Filter{}, false
	}
	p := f
	p.Start = start.Add(-end.Sub(start))
	p.End = start.AddDate(0, 0, -1)
	return p, true
}

func (f Filter) Match(tx *models.Transaction) bool {
	if !f.Start.IsZero() && tx.Date.Before(f.startInclusive()) {
		return false
	}
	if !f.End.IsZero() && !tx.Date.Before(f.endExclusive()) {
		return false
	}
	if !in(f.Countries, tx.Country) ||
		!in(f.Regions, tx.Region) ||
		!in(f.Categories, tx.Category) ||
		!in(f.Subcategories, tx.Subcategory) ||
		!in(f.CustomerSegments, tx.CustomerSegment) ||
		!in(f.PaymentMethods, tx.PaymentMethod) ||
		!in(f.DeviceTypes, tx.DeviceType) ||
		!in(f.TrafficSources, tx.TrafficSource) {
		return false
	}
	if f.MinPrice != nil && tx.UnitPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && tx.UnitPrice > *f.MaxPrice {
		return false
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f Filter) Apply(txs []models.Transaction) []models.Transaction {
	if f.IsZero() {
		return txs
	}
	out := make([]models.Transaction, 0, len(txs)/4)
	for i := range txs {
		if f.Match(&txs[i]) {
			out = append(out, txs[i])
		}
	}
	return out
}

func (f Filter) IsZero() bool {
	return f.Start.IsZero() && f.End.IsZero() && f.ActiveCount() == 0 &&
		f.MinPrice == nil && f.MaxPrice == nil
}

// ActiveCount reports how many set-membership predicates are in use.
func (f Filter) ActiveCount() int {
	n := 0
	for _, s := range [][]string{
		f.Countries, f.Regions, f.Categories, f.Subcategories,
		f.CustomerSegments, f.PaymentMethods, f.DeviceTypes, f.TrafficSources,
	} {
		if len(s) > 0 {
			n++
		}
	}
	return n
}

// Where renders the filter as a SQL condition with ? placeholders and the
// matching argument list. Column names are fixed here and never come from
// callers. An empty filter yields an empty clause.
func (f Filter) Where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if !f.Start.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.startInclusive())
	}
	if !f.End.IsZero() {
		clauses = append(clauses, "date < ?")
		args = append(args, f.endExclusive())
	}
	for _, set := range []struct {
		column string
		values []string
	}{
		{"country", f.Countries},
		{"region", f.Regions},
		{"category", f.Categories},
		{"subcategory", f.Subcategories},
		{"customer_segment", f.CustomerSegments},
		{"payment_method", f.PaymentMethods},
		{"device_type", f.DeviceTypes},
		{"traffic_source", f.TrafficSources},
	} {
		if len(set.values) == 0 {
			continue
		}
		clauses = append(clauses, set.column+" IN ?")
		args = append(args, set.values)
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "unit_price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "unit_price <= ?")
		args = append(args, *f.MaxPrice)
	}
	return strings.Join(clauses, " AND "), args
}

func in(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

// Options lists the distinct values present for each facet, for building
// filter controls.
type Options struct {
	Countries        []string `json:"countries"`
	Regions          []string `json:"regions"`
	Categories       []string `json:"categories"`
	Subcategories    []string `json:"subcategories"`
	CustomerSegments []string `json:"customer_segments"`
	PaymentMethods   []string `json:"payment_methods"`
	DeviceTypes      []string `json:"device_types"`
	TrafficSources   []string `json:"traffic_sources"`
	MinPrice         float64  `json:"min_price"`
	MaxPrice         float64  `json:"max_price"`
	Presets          []string `json:"presets"`
}

func FacetOptions(txs []models.Transaction) Options {
	sets := make([]map[string]struct{}, 8)
	for i := range sets {
		sets[i] = make(map[string]struct{})
	}
	opts := Options{Presets: Presets}
	for i, tx := range txs {
		for j, v := range []string{
			tx.Country, tx.Region, tx.Category, tx.Subcategory,
			tx.CustomerSegment, tx.PaymentMethod, tx.DeviceType, tx.TrafficSource,
		} {
			if v != "" {
				sets[j][v] = struct{}{}
			}
		}
		if i == 0 || tx.UnitPrice < opts.MinPrice {
			opts.MinPrice = tx.UnitPrice
		}
		if i == 0 || tx.UnitPrice > opts.MaxPrice {
			opts.MaxPrice = tx.UnitPrice
		}
	}
	sorted := func(m map[string]struct{}) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		slices.Sort(out)
		return out
	}
	opts.Countries = sorted(sets[0])
	opts.Regions = sorted(sets[1])
	opts.Categories = sorted(sets[2])
	opts.Subcategories = sorted(sets[3])
	opts.CustomerSegments = sorted(sets[4])
	opts.PaymentMethods = sorted(sets[5])
	opts.DeviceTypes = sorted(sets[6])
	opts.TrafficSources = sorted(sets[7])
	return opts
}
