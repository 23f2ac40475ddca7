// Package ml holds the model-backed analytics: forecasting, customer
// clustering, churn triage, recommendations, demand planning and anomaly
// detection. Nothing is persisted between calls; every call fits its model
// on the data it is given.
package ml

import (
	"errors"
	"math"
	"slices"
	"time"

	"ecommerce-analytics/internal/models"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidArgument  = errors.New("invalid argument")
)

const dateLayout = "2006-01-02"

type dailyPoint struct {
	Day     time.Time
	Revenue float64
	Orders  int
}

// dailyTotals sums USD revenue and order counts per UTC day for
// transactions on or after from, returning only days with activity.
func dailyTotals(txs []models.Transaction, from time.Time) []dailyPoint {
	byDay := make(map[time.Time]*dailyPoint)
	for i := range txs {
		tx := &txs[i]
		if !from.IsZero() && tx.Date.Before(from) {
			continue
		}
		day := tx.Day()
		p, ok := byDay[day]
		if !ok {
			p = &dailyPoint{Day: day}
			byDay[day] = p
		}
		p.Revenue += tx.TotalAmountUSD
		p.Orders++
	}

	out := make([]dailyPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b dailyPoint) int { return a.Day.Compare(b.Day) })
	return out
}

// fillGaps inserts zero days so the series has one point per calendar day.
func fillGaps(points []dailyPoint) []dailyPoint {
	if len(points) < 2 {
		return points
	}
	first, last := points[0].Day, points[len(points)-1].Day
	out := make([]dailyPoint, 0, int(last.Sub(first).Hours()/24)+1)
	i := 0
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if i < len(points) && points[i].Day.Equal(day) {
			out = append(out, points[i])
			i++
			continue
		}
		out = append(out, dailyPoint{Day: day})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// finite maps NaN and infinities to zero so results stay JSON encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
