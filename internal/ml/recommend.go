package ml

import (
	"cmp"
	"fmt"
	"slices"

	"ecommerce-analytics/internal/models"
)

type Recommendation struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Category      string  `json:"category"`
	Score         float64 `json:"score"`
	CustomerCount int     `json:"customer_count"`
	Revenue       float64 `json:"revenue"`
	Reason        string  `json:"reason"`
}

type Recommendations struct {
	SourceProductID        string           `json:"source_product_id"`
	TotalCustomersAnalyzed int              `json:"total_customers_analyzed"`
	Recommendations        []Recommendation `json:"recommendations"`
	Message                string           `json:"message,omitempty"`
}

// Recommend finds products bought by the customers who bought productID.
// A candidate's score is the share of those customers who also bought it.
// Ties fall back to revenue from those customers, then product id. A
// product nobody bought yields an empty list with a message.
func Recommend(txs []models.Transaction, productID string, topN int) *Recommendations {
	buyers := make(map[string]struct{})
	for i := range txs {
		if txs[i].ProductID == productID && txs[i].CustomerID != "" {
			buyers[txs[i].CustomerID] = struct{}{}
		}
	}
	res := &Recommendations{
		SourceProductID:        productID,
		TotalCustomersAnalyzed: len(buyers),
		Recommendations:        []Recommendation{},
	}
	if len(buyers) == 0 {
		res.Message = "product not found"
		return res
	}

	type candidate struct {
		tx        *models.Transaction
		customers map[string]struct{}
		revenue   float64
	}
	cands := make(map[string]*candidate)
	for i := range txs {
		tx := &txs[i]
		if tx.ProductID == productID {
			continue
		}
		if _, ok := buyers[tx.CustomerID]; !ok {
			continue
		}
		c, ok := cands[tx.ProductID]
		if !ok {
			c = &candidate{tx: tx, customers: make(map[string]struct{})}
			cands[tx.ProductID] = c
		}
		c.customers[tx.CustomerID] = struct{}{}
		c.revenue += tx.TotalAmountUSD
	}

	for id, c := range cands {
		n := len(c.customers)
		res.Recommendations = append(res.Recommendations, Recommendation{
			ProductID:     id,
			ProductName:   c.tx.ProductName,
			Category:      c.tx.Category,
			Score:         round(float64(n)/float64(len(buyers))*100, 2),
			CustomerCount: n,
			Revenue:       round(c.revenue, 2),
			Reason:        fmt.Sprintf("%d customers who bought this product also bought this", n),
		})
	}
	slices.SortFunc(res.Recommendations, func(a, b Recommendation) int {
		if c := cmp.Compare(b.CustomerCount, a.CustomerCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if topN > 0 && len(res.Recommendations) > topN {
		res.Recommendations = res.Recommendations[:topN]
	}
	return res
}
