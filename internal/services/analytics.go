package services

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/segment"
)

const (
	batchSize  = 10000
	maxWorkers = 10

	defaultKPIWindowDays = 30
)

const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"

	MetricRevenue = "revenue"
	MetricOrders  = "orders"
	MetricMargin  = "margin"
)

var (
	Granularities = []string{GranularityDay, GranularityWeek, GranularityMonth}
	TopMetrics    = []string{MetricRevenue, MetricOrders, MetricMargin}
)

// ErrInvalidArgument marks a value outside one of the allow-lists above.
var ErrInvalidArgument = errors.New("invalid argument")

// Provider hands out the dataset currently being served.
type Provider interface {
	Current() *models.Dataset
}

// Analytics answers dashboard and API queries against the current dataset.
// Every call works on the snapshot it reads first, so a concurrent refresh
// never mixes two datasets within one answer.
type Analytics struct {
	data   Provider
	now    func() time.Time
	logger *slog.Logger
}

func NewAnalytics(data Provider, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		data:   data,
		now:    time.Now,
		logger: logger.With("component", "analytics"),
	}
}

// WithClock replaces the clock used for default date windows.
func (a *Analytics) WithClock(now func() time.Time) *Analytics {
	a.now = now
	return a
}

func (a *Analytics) Now() time.Time {
	return a.now().UTC()
}

func (a *Analytics) Dataset() *models.Dataset {
	return a.data.Current()
}

type Pagination struct {
	Limit  int
	Offset int
}

type CustomerQuery struct {
	Country string
	Segment string
	MinLTV  *float64
}

type ProductQuery struct {
	Category  string
	MinRating *float64
}

// KPIs summarizes the filtered window. Without dates it covers the last 30
// days up to now.
func (a *Analytics) KPIs(f filter.Filter) models.KPIs {
	if f.End.IsZero() {
		f.End = a.Now()
	}
	if f.Start.IsZero() {
		f.Start = f.End.AddDate(0, 0, -defaultKPIWindowDays)
	}

	all := a.Dataset().Transactions
	txs := f.Apply(all)
	var g group
	for i := range txs {
		g.add(&txs[i])
	}

	k := models.KPIs{
		TotalRevenue:   round2(g.revenue),
		TotalOrders:    g.orders,
		GrossProfit:    round2(g.profit),
		TotalCustomers: len(g.customers),
		TotalCost:      round2(g.revenue - g.profit),
		UnitsSold:      g.units,
		PeriodStart:    f.Start.Format(filter.DateLayout),
		PeriodEnd:      f.End.Format(filter.DateLayout),
	}
	if g.orders > 0 {
		k.AvgOrderValue = round2(g.revenue / float64(g.orders))
		k.UnitsPerOrder = round2(float64(g.units) / float64(g.orders))
		k.AvgShippingCost = round2(g.shipping / float64(g.orders))
	}
	if g.deliveryN > 0 {
		k.AvgDeliveryDays = round2(float64(g.deliveryDays) / float64(g.deliveryN))
	}
	if g.revenue > 0 {
		k.ProfitMarginPct = round2(g.profit / g.revenue * 100)
	}
	if k.TotalCustomers > 0 {
		k.ConversionRate = round2(float64(g.orders) / float64(k.TotalCustomers) * 100)
	}

	if prev, ok := f.Previous(); ok {
		var pg group
		for i := range all {
			if prev.Match(&all[i]) {
				pg.orders++
				pg.revenue += all[i].TotalAmountUSD
			}
		}
		k.PreviousRevenue = round2(pg.revenue)
		k.PreviousOrders = pg.orders
		k.RevenueChangePct = changePct(g.revenue, pg.revenue)
		k.OrdersChangePct = changePct(float64(g.orders), float64(pg.orders))
	}
	return k
}

func changePct(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return round2((cur - prev) / prev * 100)
}

// Transactions lists matching transactions newest first.
func (a *Analytics) Transactions(f filter.Filter, p Pagination) models.Page[models.Transaction] {
	txs := slices.Clone(f.Apply(a.Dataset().Transactions))
	slices.SortStableFunc(txs, func(x, y models.Transaction) int {
		return y.Date.Compare(x.Date)
	})
	return paginate(txs, p)
}

// Customers lists matching customers by lifetime value, highest first.
func (a *Analytics) Customers(q CustomerQuery, p Pagination) models.Page[models.Customer] {
	var out []models.Customer
	for _, c := range a.Dataset().Customers {
		if q.Country != "" && c.Country != q.Country {
			continue
		}
		if q.Segment != "" && c.RFMSegment != q.Segment {
			continue
		}
		if q.MinLTV != nil && c.LifetimeValue < *q.MinLTV {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(x, y models.Customer) int {
		return cmp.Compare(y.LifetimeValue, x.LifetimeValue)
	})
	return paginate(out, p)
}

// Products lists matching catalog entries by rating, highest first.
func (a *Analytics) Products(q ProductQuery, p Pagination) models.Page[models.Product] {
	var out []models.Product
	for _, pr := range a.Dataset().Products {
		if q.Category != "" && pr.Category != q.Category {
			continue
		}
		if q.MinRating != nil && pr.Rating < *q.MinRating {
			continue
		}
		out = append(out, pr)
	}
	slices.SortStableFunc(out, func(x, y models.Product) int {
		return cmp.Compare(y.Rating, x.Rating)
	})
	return paginate(out, p)
}

func (a *Analytics) Countries(f filter.Filter) []models.CountryStats {
	return countryStats(f.Apply(a.Dataset().Transactions))
}

func (a *Analytics) Categories(f filter.Filter) []models.CategoryStats {
	return categoryStats(f.Apply(a.Dataset().Transactions))
}

// TimeSeries buckets matching transactions by day, week (starting Monday)
// or month. Periods are labelled with their first day.
func (a *Analytics) TimeSeries(granularity string, f filter.Filter) ([]models.TimeSeriesPoint, error) {
	if !slices.Contains(Granularities, granularity) {
		return nil, fmt.Errorf("%w: granularity must be one of %s", ErrInvalidArgument, strings.Join(Granularities, ", "))
	}
	return timeSeries(f.Apply(a.Dataset().Transactions), granularity), nil
}

// TopProducts ranks products by total revenue, order count or average
// margin. A non-positive limit returns every product.
func (a *Analytics) TopProducts(metric string, limit int, f filter.Filter) ([]models.TopProduct, error) {
	if !slices.Contains(TopMetrics, metric) {
		return nil, fmt.Errorf("%w: metric must be one of %s", ErrInvalidArgument, strings.Join(TopMetrics, ", "))
	}
	return topProducts(f.Apply(a.Dataset().Transactions), metric, limit), nil
}

// Segments summarizes customers per stored RFM segment, in engagement order.
func (a *Analytics) Segments() []models.SegmentStats {
	return segmentStats(a.Dataset().Customers)
}

// FilterOptions lists the values the dashboard filter controls offer.
func (a *Analytics) FilterOptions() filter.Options {
	return filter.FacetOptions(a.Dataset().Transactions)
}

// Stats reports dataset metadata for monitoring.
func (a *Analytics) Stats() map[string]any {
	ds := a.Dataset()
	first, last := ds.DateRange()
	stats := map[string]any{
		"source":       ds.Source,
		"loaded_at":    ds.LoadedAt,
		"transactions": len(ds.Transactions),
		"customers":    len(ds.Customers),
		"products":     len(ds.Products),
	}
	if !ds.Empty() {
		stats["first_date"] = first.Format(filter.DateLayout)
		stats["last_date"] = last.Format(filter.DateLayout)
	}
	return stats
}

func paginate[T any](rows []T, p Pagination) models.Page[T] {
	total := len(rows)
	start := min(max(p.Offset, 0), total)
	end := total
	if p.Limit > 0 {
		end = min(start+p.Limit, total)
	}
	data := rows[start:end]
	if data == nil {
		data = []T{}
	}
	return models.Page[T]{Total: total, Limit: p.Limit, Offset: p.Offset, Data: data}
}

// group accumulates the measures every breakdown reports.
// deliveryDays sums only orders with a recorded delivery time.
type group struct {
	orders       int
	revenue      float64
	profit       float64
	units        int
	marginSum    float64
	marginN      int
	shipping     float64
	deliveryDays int
	deliveryN    int
	customers    map[string]struct{}
	sample       *models.Transaction
}

func (g *group) add(tx *models.Transaction) {
	if g.sample == nil {
		g.sample = tx
	}
	g.orders++
	g.revenue += tx.TotalAmountUSD
	g.profit += tx.Profit
	g.units += tx.Quantity
	g.shipping += tx.ShippingCost
	if tx.DeliveryTime > 0 {
		g.deliveryDays += tx.DeliveryTime
		g.deliveryN++
	}
	if m, ok := tx.MarginPct(); ok {
		g.marginSum += m
		g.marginN++
	}
	if tx.CustomerID != "" {
		if g.customers == nil {
			g.customers = make(map[string]struct{})
		}
		g.customers[tx.CustomerID] = struct{}{}
	}
}

func (g *group) merge(o *group) {
	if g.sample == nil {
		g.sample = o.sample
	}
	g.orders += o.orders
	g.revenue += o.revenue
	g.profit += o.profit
	g.units += o.units
	g.marginSum += o.marginSum
	g.marginN += o.marginN
	g.shipping += o.shipping
	g.deliveryDays += o.deliveryDays
	g.deliveryN += o.deliveryN
	if len(o.customers) > 0 && g.customers == nil {
		g.customers = make(map[string]struct{}, len(o.customers))
	}
	for id := range o.customers {
		g.customers[id] = struct{}{}
	}
}

func (g *group) avgMargin() float64 {
	if g.marginN == 0 {
		return 0
	}
	return round2(g.marginSum / float64(g.marginN))
}

func (g *group) aov() float64 {
	if g.orders == 0 {
		return 0
	}
	return round2(g.revenue / float64(g.orders))
}

// aggregate groups transactions by key. Large inputs are split into batches
// aggregated in parallel and merged under a lock.
func aggregate[K comparable](txs []models.Transaction, key func(*models.Transaction) K) map[K]*group {
	out := make(map[K]*group)
	if len(txs) <= batchSize {
		accumulate(out, txs, key)
		return out
	}

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	eg.SetLimit(maxWorkers)
	for start := 0; start < len(txs); start += batchSize {
		chunk := txs[start:min(start+batchSize, len(txs))]
		eg.Go(func() error {
			local := make(map[K]*group)
			accumulate(local, chunk, key)

			mu.Lock()
			defer mu.Unlock()
			for k, v := range local {
				if dst, ok := out[k]; ok {
					dst.merge(v)
				} else {
					out[k] = v
				}
			}
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func accumulate[K comparable](dst map[K]*group, txs []models.Transaction, key func(*models.Transaction) K) {
	for i := range txs {
		tx := &txs[i]
		k := key(tx)
		g, ok := dst[k]
		if !ok {
			g = &group{}
			dst[k] = g
		}
		g.add(tx)
	}
}

func byRevenue[K cmp.Ordered](groups map[K]*group) []K {
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y K) int {
		if c := cmp.Compare(groups[y].revenue, groups[x].revenue); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	return keys
}

func countryStats(txs []models.Transaction) []models.CountryStats {
	groups := aggregate(txs, func(tx *models.Transaction) string { return tx.Country })
	out := make([]models.CountryStats, 0, len(groups))
	for _, country := range byRevenue(groups) {
		g := groups[country]
		out = append(out, models.CountryStats{
			Country:   country,
			Orders:    g.orders,
			Revenue:   round2(g.revenue),
			AOV:       g.aov(),
			Customers: len(g.customers),
			Profit:    round2(g.profit),
		})
	}
	return out
}

func categoryStats(txs []models.Transaction) []models.CategoryStats {
	groups := aggregate(txs, func(tx *models.Transaction) string { return tx.Category })
	out := make([]models.CategoryStats, 0, len(groups))
	for _, category := range byRevenue(groups) {
		g := groups[category]
		out = append(out, models.CategoryStats{
			Category:  category,
			Orders:    g.orders,
			Revenue:   round2(g.revenue),
			Profit:    round2(g.profit),
			AvgMargin: g.avgMargin(),
			UnitsSold: g.units,
		})
	}
	return out
}

func timeSeries(txs []models.Transaction, granularity string) []models.TimeSeriesPoint {
	groups := aggregate(txs, func(tx *models.Transaction) time.Time {
		return periodStart(tx.Date, granularity)
	})
	periods := make([]time.Time, 0, len(groups))
	for p := range groups {
		periods = append(periods, p)
	}
	slices.SortFunc(periods, time.Time.Compare)

	out := make([]models.TimeSeriesPoint, 0, len(periods))
	for _, p := range periods {
		g := groups[p]
		out = append(out, models.TimeSeriesPoint{
			Period:  p.Format(filter.DateLayout),
			Orders:  g.orders,
			Revenue: round2(g.revenue),
			Profit:  round2(g.profit),
		})
	}
	return out
}

func periodStart(t time.Time, granularity string) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch granularity {
	case GranularityWeek:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func topProducts(txs []models.Transaction, metric string, limit int) []models.TopProduct {
	groups := aggregate(txs, func(tx *models.Transaction) string { return tx.ProductID })
	out := make([]models.TopProduct, 0, len(groups))
	for id, g := range groups {
		out = append(out, models.TopProduct{
			ProductID:   id,
			ProductName: g.sample.ProductName,
			Category:    g.sample.Category,
			Orders:      g.orders,
			Revenue:     round2(g.revenue),
			Profit:      round2(g.profit),
			UnitsSold:   g.units,
			AvgMargin:   g.avgMargin(),
		})
	}

	measure := func(p models.TopProduct) float64 {
		switch metric {
		case MetricOrders:
			return float64(p.Orders)
		case MetricMargin:
			return p.AvgMargin
		}
		return p.Revenue
	}
	slices.SortFunc(out, func(x, y models.TopProduct) int {
		if c := cmp.Compare(measure(y), measure(x)); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Revenue, x.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(x.ProductID, y.ProductID)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func segmentStats(customers []models.Customer) []models.SegmentStats {
	type acc struct {
		n                  int
		ltv, orders, churn float64
	}
	bySegment := make(map[string]*acc)
	var totalLTV float64
	for _, c := range customers {
		name := c.RFMSegment
		if name == "" {
			name = "Unknown"
		}
		s, ok := bySegment[name]
		if !ok {
			s = &acc{}
			bySegment[name] = s
		}
		s.n++
		s.ltv += c.LifetimeValue
		s.orders += float64(c.TotalOrders)
		s.churn += c.ChurnProbability
		totalLTV += c.LifetimeValue
	}

	names := make([]string, 0, len(bySegment))
	for _, name := range segment.All {
		if _, ok := bySegment[name]; ok {
			names = append(names, name)
		}
	}
	var extra []string
	for name := range bySegment {
		if !slices.Contains(segment.All, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)

	out := make([]models.SegmentStats, 0, len(names))
	for _, name := range names {
		s := bySegment[name]
		n := float64(s.n)
		st := models.SegmentStats{
			Segment:        name,
			Customers:      s.n,
			AvgLTV:         round2(s.ltv / n),
			AvgOrders:      round2(s.orders / n),
			AvgChurn:       math.Round(s.churn/n*1000) / 1000,
			CustomersShare: round2(n / float64(len(customers)) * 100),
		}
		if totalLTV > 0 {
			st.RevenueShare = round2(s.ltv / totalLTV * 100)
		}
		out = append(out, st)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
