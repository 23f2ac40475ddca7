package ml

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"ecommerce-analytics/internal/models"
)

const (
	forestTrees      = 100
	forestMaxSamples = 256
	forestSeed       = 42
	minAnomalyDays   = 7
)

type Anomaly struct {
	Day          string  `json:"day"`
	Revenue      float64 `json:"revenue"`
	Orders       int     `json:"orders"`
	Score        float64 `json:"score"`
	DeviationPct float64 `json:"deviation_pct"`
	Severity     string  `json:"severity"`
}

type AnomalyReport struct {
	TotalDaysAnalyzed int       `json:"total_days_analyzed"`
	AnomaliesDetected int       `json:"anomalies_detected"`
	ContaminationRate float64   `json:"contamination_rate"`
	Anomalies         []Anomaly `json:"anomalies"`
}

// DetectAnomalies runs an isolation forest over (revenue, orders) for each
// active day in the daysBack days before asOf and flags the
// round(contamination*days) highest scoring days. Deviation is measured
// against the mean daily revenue of the window. Output is in date order.
func DetectAnomalies(txs []models.Transaction, contamination float64, daysBack int, asOf time.Time) (*AnomalyReport, error) {
	if contamination <= 0 || contamination >= 0.5 {
		return nil, fmt.Errorf("%w: contamination must be in (0, 0.5)", ErrInvalidArgument)
	}

	days := dailyTotals(txs, startOfDay(asOf).AddDate(0, 0, -daysBack))
	if len(days) < minAnomalyDays {
		return nil, fmt.Errorf("%w: need %d active days, have %d", ErrInsufficientData, minAnomalyDays, len(days))
	}

	points := make([][]float64, len(days))
	revenue := make([]float64, len(days))
	for i, d := range days {
		points[i] = []float64{d.Revenue, float64(d.Orders)}
		revenue[i] = d.Revenue
	}

	forest := fitIsolationForest(points, forestTrees, forestMaxSamples, rand.New(rand.NewPCG(forestSeed, forestSeed)))
	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(points))
	for i, p := range points {
		ranked[i] = scored{idx: i, score: forest.score(p)}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return cmp.Compare(b.score, a.score) })

	n := int(math.Round(contamination * float64(len(days))))
	flagged := ranked[:n]
	slices.SortFunc(flagged, func(a, b scored) int { return cmp.Compare(a.idx, b.idx) })

	mean := stat.Mean(revenue, nil)
	report := &AnomalyReport{
		TotalDaysAnalyzed: len(days),
		AnomaliesDetected: len(flagged),
		ContaminationRate: contamination,
		Anomalies:         make([]Anomaly, 0, len(flagged)),
	}
	for _, s := range flagged {
		d := days[s.idx]
		var dev float64
		if mean != 0 {
			dev = round((d.Revenue-mean)/mean*100, 2)
		}
		report.Anomalies = append(report.Anomalies, Anomaly{
			Day:          d.Day.Format(dateLayout),
			Revenue:      round(d.Revenue, 2),
			Orders:       d.Orders,
			Score:        round(s.score, 4),
			DeviationPct: dev,
			Severity:     anomalySeverity(dev),
		})
	}
	return report, nil
}

func anomalySeverity(deviationPct float64) string {
	switch d := math.Abs(deviationPct); {
	case d > 50:
		return RiskCritical
	case d > 25:
		return RiskHigh
	default:
		return RiskMedium
	}
}
