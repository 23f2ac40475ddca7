package models

// KPIs are the headline figures for a window. The change percentages
// compare against the window of equal length just before it and are 0 when
// that window has no revenue or orders.
type KPIs struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalOrders      int     `json:"total_orders"`
	AvgOrderValue    float64 `json:"avg_order_value"`
	GrossProfit      float64 `json:"gross_profit"`
	TotalCustomers   int     `json:"total_customers"`
	ConversionRate   float64 `json:"conversion_rate"`
	PreviousRevenue  float64 `json:"previous_revenue"`
	PreviousOrders   int     `json:"previous_orders"`
	RevenueChangePct float64 `json:"revenue_change_pct"`
	OrdersChangePct  float64 `json:"orders_change_pct"`
	TotalCost        float64 `json:"total_cost"`
	ProfitMarginPct  float64 `json:"profit_margin_pct"`
	UnitsSold        int     `json:"units_sold"`
	UnitsPerOrder    float64 `json:"units_per_order"`
	AvgShippingCost  float64 `json:"avg_shipping_cost"`
	AvgDeliveryDays  float64 `json:"avg_delivery_days"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
}

// Page is one window of a listing. Total counts every matching row, not
// just the rows in Data.
type Page[T any] struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Data   []T `json:"data"`
}

type CountryStats struct {
	Country   string  `json:"country"`
	Orders    int     `json:"orders"`
	Revenue   float64 `json:"revenue"`
	AOV       float64 `json:"aov"`
	Customers int     `json:"customers"`
	Profit    float64 `json:"profit"`
}

type CategoryStats struct {
	Category  string  `json:"category"`
	Orders    int     `json:"orders"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
	AvgMargin float64 `json:"avg_margin"`
	UnitsSold int     `json:"units_sold"`
}

type TimeSeriesPoint struct {
	Period  string  `json:"period"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// ProfitLossPoint is one month of the P&L statement. Cost is revenue minus
// profit.
type ProfitLossPoint struct {
	Period    string  `json:"period"`
	Revenue   float64 `json:"revenue"`
	Cost      float64 `json:"cost"`
	Profit    float64 `json:"profit"`
	MarginPct float64 `json:"margin_pct"`
}

type TopProduct struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Orders      int     `json:"orders"`
	Revenue     float64 `json:"revenue"`
	Profit      float64 `json:"profit"`
	UnitsSold   int     `json:"units_sold"`
	AvgMargin   float64 `json:"avg_margin"`
}

type SegmentStats struct {
	Segment        string  `json:"segment"`
	Customers      int     `json:"customers"`
	AvgLTV         float64 `json:"avg_ltv"`
	AvgOrders      float64 `json:"avg_orders"`
	AvgChurn       float64 `json:"avg_churn"`
	RevenueShare   float64 `json:"revenue_share"`
	CustomersShare float64 `json:"customers_share"`
}

// LabeledValue is one bar or slice of a categorical chart.
type LabeledValue struct {
	Label   string  `json:"label"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// Charts bundles every series the dashboard page renders.
type Charts struct {
	RevenueTrend   []TimeSeriesPoint `json:"revenue_trend"`
	ProfitLoss     []ProfitLossPoint `json:"profit_loss"`
	TopCountries   []CountryStats    `json:"top_countries"`
	CategoryShare  []CategoryStats   `json:"category_share"`
	RFMSegments    []SegmentStats    `json:"rfm_segments"`
	Devices        []LabeledValue    `json:"devices"`
	TrafficSources []LabeledValue    `json:"traffic_sources"`
	PaymentMethods []LabeledValue    `json:"payment_methods"`
	Weekdays       []LabeledValue    `json:"weekdays"`
	Hours          []LabeledValue    `json:"hours"`
}
