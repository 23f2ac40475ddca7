// Package segment derives RFM segments and churn scores for customers.
package segment

import (
	"math"
	"time"

	"ecommerce-analytics/internal/models"
)

const (
	Champions          = "Champions"
	LoyalCustomers     = "Loyal Customers"
	PotentialLoyalists = "Potential Loyalists"
	RecentCustomers    = "Recent Customers"
	Promising          = "Promising"
	NeedingAttention   = "Customers Needing Attention"
	AboutToSleep       = "About to Sleep"
	AtRisk             = "At Risk"
	CantLoseThem       = "Can't Lose Them"
	Hibernating        = "Hibernating"
	Lost               = "Lost"
)

// All lists segments from most to least engaged.
var All = []string{
	Champions, LoyalCustomers, PotentialLoyalists, RecentCustomers, Promising,
	NeedingAttention, AboutToSleep, AtRisk, CantLoseThem, Hibernating, Lost,
}

const maxChurn = 0.95

// RFM maps recency (days since last purchase), frequency (orders) and
// monetary value (lifetime spend) to a segment. Rules are checked in order
// and the first match wins.
func RFM(recency, frequency int, monetary float64) string {
	switch {
	case recency <= 30 && frequency >= 10 && monetary >= 1000:
		return Champions
	case recency <= 60 && frequency >= 8:
		return LoyalCustomers
	case recency <= 90 && frequency >= 5:
		return PotentialLoyalists
	case recency <= 60 && frequency <= 3:
		return RecentCustomers
	case recency <= 90 && frequency <= 5 && monetary >= 500:
		return Promising
	case recency <= 120 && frequency >= 3:
		return NeedingAttention
	case recency <= 180 && frequency >= 2:
		return AboutToSleep
	case recency <= 240 && monetary >= 800:
		return AtRisk
	case recency <= 300 && monetary >= 1000:
		return CantLoseThem
	case recency <= 365 && frequency <= 2:
		return Hibernating
	default:
		return Lost
	}
}

// ChurnProbability grows linearly with recency and is capped at 0.95.
func ChurnProbability(recencyDays int) float64 {
	if recencyDays < 0 {
		recencyDays = 0
	}
	p := math.Min(maxChurn, float64(recencyDays)/365.0)
	return math.Round(p*1000) / 1000
}

// Snapshot recomputes the derived fields of c from the customer's
// transactions as of asOf. Demographic fields already on c are kept.
func Snapshot(c models.Customer, txs []models.Transaction, asOf time.Time) models.Customer {
	if len(txs) == 0 {
		return c
	}

	var (
		first, last time.Time
		monetary    float64
		countries   = make(map[string]int)
		categories  = make(map[string]int)
	)
	for i, tx := range txs {
		if i == 0 || tx.Date.Before(first) {
			first = tx.Date
		}
		if i == 0 || tx.Date.After(last) {
			last = tx.Date
		}
		monetary += tx.TotalAmountUSD
		countries[tx.Country]++
		categories[tx.Category]++
	}

	recency := max(int(asOf.Sub(last).Hours()/24), 0)
	frequency := len(txs)
	monetary = math.Round(monetary*100) / 100

	c.RegistrationDate = first
	c.LastPurchaseDate = last
	c.LifetimeValue = monetary
	c.TotalOrders = frequency
	c.AvgOrderValue = math.Round(monetary/float64(frequency)*100) / 100
	c.RecencyScore = recency
	c.FrequencyScore = frequency
	c.MonetaryScore = monetary
	c.RFMSegment = RFM(recency, frequency, monetary)
	c.ChurnProbability = ChurnProbability(recency)
	if c.Country == "" {
		c.Country = mode(countries)
	}
	c.PreferredCategory = mode(categories)
	return c
}

// mode picks the most frequent key, breaking ties alphabetically.
func mode(counts map[string]int) string {
	best, bestN := "", -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
