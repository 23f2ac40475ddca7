package ml

import (
	"cmp"
	"slices"
	"time"

	"ecommerce-analytics/internal/models"
)

const (
	RiskCritical = "Critical"
	RiskHigh     = "High"
	RiskMedium   = "Medium"
	RiskLow      = "Low"

	criticalChurn = 0.85
)

type ChurnRisk struct {
	CustomerID        string    `json:"customer_id"`
	Country           string    `json:"country"`
	LifetimeValue     float64   `json:"lifetime_value"`
	TotalOrders       int       `json:"total_orders"`
	LastPurchaseDate  time.Time `json:"last_purchase_date"`
	RFMSegment        string    `json:"rfm_segment"`
	ChurnProbability  float64   `json:"churn_probability"`
	RiskLevel         string    `json:"risk_level"`
	RecommendedAction string    `json:"recommended_action"`
}

type AtRiskResult struct {
	Threshold   float64     `json:"threshold"`
	TotalAtRisk int         `json:"total_at_risk"`
	Customers   []ChurnRisk `json:"customers"`
}

// AtRisk lists customers whose stored churn probability is at least
// threshold, most likely to churn first and then by lifetime value. A
// missing score reads as zero and never qualifies.
func AtRisk(customers []models.Customer, threshold float64, limit int) *AtRiskResult {
	var out []ChurnRisk
	for _, c := range customers {
		if c.ChurnProbability < threshold {
			continue
		}
		out = append(out, ChurnRisk{
			CustomerID:        c.CustomerID,
			Country:           c.Country,
			LifetimeValue:     c.LifetimeValue,
			TotalOrders:       c.TotalOrders,
			LastPurchaseDate:  c.LastPurchaseDate,
			RFMSegment:        c.RFMSegment,
			ChurnProbability:  round(c.ChurnProbability, 3),
			RiskLevel:         churnRiskLevel(c.ChurnProbability),
			RecommendedAction: retentionAction(c),
		})
	}

	slices.SortStableFunc(out, func(a, b ChurnRisk) int {
		if c := cmp.Compare(b.ChurnProbability, a.ChurnProbability); c != 0 {
			return c
		}
		return cmp.Compare(b.LifetimeValue, a.LifetimeValue)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []ChurnRisk{}
	}
	return &AtRiskResult{Threshold: threshold, TotalAtRisk: len(out), Customers: out}
}

func churnRiskLevel(p float64) string {
	if p > criticalChurn {
		return RiskCritical
	}
	return RiskHigh
}

func retentionAction(c models.Customer) string {
	switch {
	case c.LifetimeValue > 1000:
		return "Priority win-back campaign with personalized offer"
	case c.TotalOrders > 10:
		return "Re-engagement email with discount"
	default:
		return "Survey to understand pain points"
	}
}
