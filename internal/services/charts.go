package services

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/models"
)

const (
	chartTopCountries = 10

	reportTransactions = 1000
	reportTopProducts  = 100
	reportVIPCustomers = 100
	reportDailyPoints  = 90
)

// Charts computes every series the dashboard renders for the filtered set.
func (a *Analytics) Charts(f filter.Filter) models.Charts {
	ds := a.Dataset()
	txs := f.Apply(ds.Transactions)

	countries := countryStats(txs)
	if len(countries) > chartTopCountries {
		countries = countries[:chartTopCountries]
	}

	trend := timeSeries(txs, GranularityMonth)
	return models.Charts{
		RevenueTrend:   trend,
		ProfitLoss:     profitLoss(trend),
		TopCountries:   countries,
		CategoryShare:  categoryStats(txs),
		RFMSegments:    segmentStats(ds.Customers),
		Devices:        labeled(txs, func(tx *models.Transaction) string { return tx.DeviceType }),
		TrafficSources: labeled(txs, func(tx *models.Transaction) string { return tx.TrafficSource }),
		PaymentMethods: labeled(txs, func(tx *models.Transaction) string { return tx.PaymentMethod }),
		Weekdays:       weekdays(txs),
		Hours:          hours(txs),
	}
}

// profitLoss derives the monthly P&L statement from the revenue trend.
func profitLoss(trend []models.TimeSeriesPoint) []models.ProfitLossPoint {
	out := make([]models.ProfitLossPoint, 0, len(trend))
	for _, p := range trend {
		pl := models.ProfitLossPoint{
			Period:  p.Period,
			Revenue: p.Revenue,
			Cost:    round2(p.Revenue - p.Profit),
			Profit:  p.Profit,
		}
		if p.Revenue > 0 {
			pl.MarginPct = round2(p.Profit / p.Revenue * 100)
		}
		out = append(out, pl)
	}
	return out
}

func labeled(txs []models.Transaction, key func(*models.Transaction) string) []models.LabeledValue {
	groups := aggregate(txs, key)
	out := make([]models.LabeledValue, 0, len(groups))
	for _, label := range byRevenue(groups) {
		g := groups[label]
		out = append(out, models.LabeledValue{Label: label, Revenue: round2(g.revenue), Orders: g.orders})
	}
	return out
}

// weekdays always returns Monday through Sunday, including empty days.
func weekdays(txs []models.Transaction) []models.LabeledValue {
	groups := aggregate(txs, func(tx *models.Transaction) time.Weekday { return tx.Date.UTC().Weekday() })
	out := make([]models.LabeledValue, 0, 7)
	for i := range 7 {
		day := time.Weekday((i + 1) % 7)
		v := models.LabeledValue{Label: day.String()}
		if g, ok := groups[day]; ok {
			v.Revenue, v.Orders = round2(g.revenue), g.orders
		}
		out = append(out, v)
	}
	return out
}

func hours(txs []models.Transaction) []models.LabeledValue {
	groups := aggregate(txs, func(tx *models.Transaction) int { return tx.Date.UTC().Hour() })
	out := make([]models.LabeledValue, 0, 24)
	for h := range 24 {
		v := models.LabeledValue{Label: fmt.Sprintf("%02d:00", h)}
		if g, ok := groups[h]; ok {
			v.Revenue, v.Orders = round2(g.revenue), g.orders
		}
		out = append(out, v)
	}
	return out
}

// Report gathers the tables the Excel and PDF exports render.
func (a *Analytics) Report(f filter.Filter) *models.Report {
	ds := a.Dataset()
	txs := f.Apply(ds.Transactions)

	var g group
	products := make(map[string]struct{})
	categories := make(map[string]struct{})
	for i := range txs {
		g.add(&txs[i])
		products[txs[i].ProductID] = struct{}{}
		categories[txs[i].Category] = struct{}{}
	}
	summary := models.Summary{
		TotalRevenue:   round2(g.revenue),
		TotalOrders:    g.orders,
		TotalCustomers: len(g.customers),
		AvgOrderValue:  g.aov(),
		GrossProfit:    round2(g.profit),
		Products:       len(products),
		Categories:     len(categories),
	}
	if g.revenue != 0 {
		summary.ProfitMargin = round2(g.profit / g.revenue * 100)
	}

	segments := segmentStats(ds.Customers)
	slices.SortStableFunc(segments, func(x, y models.SegmentStats) int {
		return cmp.Compare(y.AvgLTV, x.AvgLTV)
	})

	daily := timeSeries(txs, GranularityDay)
	if len(daily) > reportDailyPoints {
		daily = daily[len(daily)-reportDailyPoints:]
	}

	return &models.Report{
		GeneratedAt:  a.Now(),
		Summary:      summary,
		Transactions: txs[:min(len(txs), reportTransactions)],
		Countries:    countryStats(txs),
		Categories:   categoryStats(txs),
		TopProducts:  topProducts(txs, MetricRevenue, reportTopProducts),
		VIPCustomers: topCustomers(ds.Customers, reportVIPCustomers),
		Segments:     segments,
		Daily:        daily,
	}
}

func topCustomers(customers []models.Customer, n int) []models.Customer {
	out := slices.Clone(customers)
	slices.SortStableFunc(out, func(x, y models.Customer) int {
		return cmp.Compare(y.LifetimeValue, x.LifetimeValue)
	})
	return out[:min(len(out), n)]
}
