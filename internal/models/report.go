package models

import "time"

// Summary is the headline block of an exported report.
type Summary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	TotalOrders    int     `json:"total_orders"`
	TotalCustomers int     `json:"total_customers"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	GrossProfit    float64 `json:"gross_profit"`
	ProfitMargin   float64 `json:"profit_margin"`
	Products       int     `json:"products"`
	Categories     int     `json:"categories"`
}

// Report is everything the Excel and PDF exports render, computed once
// over a filtered transaction set.
type Report struct {
	GeneratedAt  time.Time
	Summary      Summary
	Transactions []Transaction
	Countries    []CountryStats
	Categories   []CategoryStats
	TopProducts  []TopProduct
	VIPCustomers []Customer
	Segments     []SegmentStats
	Daily        []TimeSeriesPoint
}
