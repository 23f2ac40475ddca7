package ml

import (
	"cmp"
	"slices"
	"time"

	"ecommerce-analytics/internal/models"
)

const (
	demandWindowDays = 90
	demandBuffer     = 1.1
)

type DemandForecast struct {
	ProductID           string  `json:"product_id"`
	ProductName         string  `json:"product_name"`
	Category            string  `json:"category"`
	CurrentStock        int     `json:"current_stock"`
	HistoricalOrders    int     `json:"historical_orders"`
	UnitsSold           int     `json:"units_sold"`
	AvgUnitsPerOrder    float64 `json:"avg_units_per_order"`
	ForecastedDemand30d int     `json:"forecasted_demand_30d"`
	ForecastedDemand60d int     `json:"forecasted_demand_60d"`
	ForecastedDemand90d int     `json:"forecasted_demand_90d"`
	StockOutRisk        string  `json:"stock_out_risk"`
	RecommendedReorder  int     `json:"recommended_reorder"`
}

type DemandReport struct {
	TotalProductsAnalyzed int              `json:"total_products_analyzed"`
	CriticalProducts      int              `json:"critical_products"`
	Products              []DemandForecast `json:"products"`
}

// ForecastDemand projects unit demand for the topN best selling catalog
// products of the 90 days before asOf. Daily demand is the window average
// plus a 10% buffer; stock below the 30, 60 or 90 day projection is
// Critical, High or Medium risk. Sales of products missing from the catalog
// are ignored.
func ForecastDemand(txs []models.Transaction, products []models.Product, topN int, asOf time.Time) *DemandReport {
	catalog := make(map[string]*models.Product, len(products))
	for i := range products {
		catalog[products[i].ProductID] = &products[i]
	}

	from := startOfDay(asOf).AddDate(0, 0, -demandWindowDays)
	type sales struct {
		product *models.Product
		name    string
		orders  int
		units   int
	}
	byProduct := make(map[string]*sales)
	for i := range txs {
		tx := &txs[i]
		if tx.Date.Before(from) || tx.Date.After(asOf) {
			continue
		}
		p, ok := catalog[tx.ProductID]
		if !ok {
			continue
		}
		s, ok := byProduct[tx.ProductID]
		if !ok {
			s = &sales{product: p, name: tx.ProductName}
			byProduct[tx.ProductID] = s
		}
		s.orders++
		s.units += tx.Quantity
	}

	ranked := make([]*sales, 0, len(byProduct))
	for _, s := range byProduct {
		ranked = append(ranked, s)
	}
	slices.SortFunc(ranked, func(a, b *sales) int {
		if c := cmp.Compare(b.units, a.units); c != 0 {
			return c
		}
		return cmp.Compare(a.product.ProductID, b.product.ProductID)
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	report := &DemandReport{Products: make([]DemandForecast, 0, len(ranked))}
	for _, s := range ranked {
		daily := float64(s.units) / demandWindowDays
		f := DemandForecast{
			ProductID:           s.product.ProductID,
			ProductName:         s.name,
			Category:            s.product.Category,
			CurrentStock:        s.product.StockQuantity,
			HistoricalOrders:    s.orders,
			UnitsSold:           s.units,
			AvgUnitsPerOrder:    round(float64(s.units)/float64(s.orders), 2),
			ForecastedDemand30d: int(daily * 30 * demandBuffer),
			ForecastedDemand60d: int(daily * 60 * demandBuffer),
			ForecastedDemand90d: int(daily * 90 * demandBuffer),
		}
		f.StockOutRisk, f.RecommendedReorder = stockOutRisk(f)
		if f.StockOutRisk == RiskCritical {
			report.CriticalProducts++
		}
		report.Products = append(report.Products, f)
	}
	report.TotalProductsAnalyzed = len(report.Products)
	return report
}

func stockOutRisk(f DemandForecast) (string, int) {
	stock := f.CurrentStock
	switch {
	case stock < f.ForecastedDemand30d:
		return RiskCritical, max(0, f.ForecastedDemand60d-stock)
	case stock < f.ForecastedDemand60d:
		return RiskHigh, max(0, f.ForecastedDemand60d-stock)
	case stock < f.ForecastedDemand90d:
		return RiskMedium, max(0, f.ForecastedDemand90d-stock)
	default:
		return RiskLow, 0
	}
}
