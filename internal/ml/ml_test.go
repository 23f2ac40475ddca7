package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"ecommerce-analytics/internal/models"
)

var asOf = time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestFillGaps(t *testing.T) {
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := fillGaps([]dailyPoint{
		{Day: d0, Revenue: 1, Orders: 1},
		{Day: d0.AddDate(0, 0, 3), Revenue: 4, Orders: 4},
	})
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[1].Orders != 0 || !got[2].Day.Equal(d0.AddDate(0, 0, 2)) || got[3].Revenue != 4 {
		t.Errorf("filled = %+v", got)
	}
}

func TestFitMetrics(t *testing.T) {
	m := fitMetrics([]float64{10, 20, 30, 40}, []float64{1, -1, 1, -1})
	if m.RMSE != 1 || m.MAPE != 5.21 || m.R2 != 0.992 {
		t.Errorf("fitMetrics() = %+v", m)
	}

	short := fitMetrics([]float64{0, 5, 10}, []float64{1, 1})
	if short.MAPE != 15 {
		t.Errorf("aligned MAPE = %v, want 15", short.MAPE)
	}
}

func weeklySeries(days int) []models.Transaction {
	var txs []models.Transaction
	for i := range days {
		d := day(-days + 1 + i)
		base := 100 + 40*math.Sin(2*math.Pi*float64(i%7)/7) + 5*math.Sin(float64(i)*1.7)
		orders := 3 + i%7
		for j := range orders {
			txs = append(txs, models.Transaction{
				TransactionID:  fmt.Sprintf("T%d-%d", i, j),
				Date:           d,
				TotalAmountUSD: base / float64(orders),
			})
		}
	}
	return txs
}

func TestForecastDaily(t *testing.T) {
	txs := weeklySeries(84)

	fc, err := ForecastDaily(txs, 14, MetricRevenue)
	if err != nil {
		t.Fatalf("ForecastDaily() error = %v", err)
	}
	if len(fc.Dates) != 14 || len(fc.Predictions) != 14 || len(fc.LowerBound) != 14 || len(fc.UpperBound) != 14 {
		t.Fatalf("lengths = %d/%d/%d/%d", len(fc.Dates), len(fc.Predictions), len(fc.LowerBound), len(fc.UpperBound))
	}
	if fc.Dates[0] != "2024-07-01" || fc.Dates[13] != "2024-07-14" {
		t.Errorf("dates = %s..%s", fc.Dates[0], fc.Dates[13])
	}
	for i := range fc.Predictions {
		if fc.LowerBound[i] < 0 || fc.LowerBound[i] > fc.Predictions[i] || fc.Predictions[i] > fc.UpperBound[i] {
			t.Errorf("day %d bounds %v <= %v <= %v", i, fc.LowerBound[i], fc.Predictions[i], fc.UpperBound[i])
		}
	}
	if first, last := fc.UpperBound[0]-fc.Predictions[0], fc.UpperBound[13]-fc.Predictions[13]; last+0.01 < first {
		t.Errorf("interval should not narrow with the horizon: day 1 +%v, day 14 +%v", first, last)
	}
	if fc.ModelMetrics.TrainingSamples != 84 || fc.ModelMetrics.Order == "" {
		t.Errorf("metrics = %+v", fc.ModelMetrics)
	}

	orders, err := ForecastDaily(txs, 7, MetricOrders)
	if err != nil {
		t.Fatalf("orders forecast error = %v", err)
	}
	if orders.Metric != MetricOrders || len(orders.Predictions) != 7 {
		t.Errorf("orders forecast = %+v", orders)
	}
}

func TestForecastDaily_Errors(t *testing.T) {
	if _, err := ForecastDaily(weeklySeries(10), 7, MetricRevenue); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short history error = %v", err)
	}
	if _, err := ForecastDaily(weeklySeries(60), 7, "profit"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad metric error = %v", err)
	}
}

func TestClusterCustomers(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var customers []models.Customer
	for g, base := range []float64{100, 1000, 10000} {
		for i := range 20 {
			customers = append(customers, models.Customer{
				CustomerID:     fmt.Sprintf("C%d-%d", g, i),
				RecencyScore:   30 * (3 - g),
				FrequencyScore: 2 + 5*g,
				MonetaryScore:  base + rng.Float64()*base/10,
				Age:            30 + rng.IntN(5),
				TotalOrders:    2 + 5*g,
				AvgOrderValue:  base / 10,
			})
		}
	}

	res, err := ClusterCustomers(customers, 3)
	if err != nil {
		t.Fatalf("ClusterCustomers() error = %v", err)
	}
	if res.TotalCustomers != 60 || res.NClusters != 3 {
		t.Errorf("meta = %d/%d", res.TotalCustomers, res.NClusters)
	}
	size := 0
	for i, c := range res.Clusters {
		size += c.Size
		if c.ClusterID != i || c.ClusterName != clusterName(i) {
			t.Errorf("cluster %d labelled %d %q", i, c.ClusterID, c.ClusterName)
		}
		if i > 0 && c.AvgMonetary > res.Clusters[i-1].AvgMonetary {
			t.Errorf("clusters not ordered by monetary: %+v", res.Clusters)
		}
	}
	if size != 60 {
		t.Errorf("cluster sizes sum to %d, want 60", size)
	}
	if res.Clusters[0].ClusterName != "High Value" {
		t.Errorf("first cluster = %q", res.Clusters[0].ClusterName)
	}

	if _, err := ClusterCustomers(customers[:2], 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("too few customers error = %v", err)
	}
}

func TestClusterName(t *testing.T) {
	if clusterName(4) != "Lost" || clusterName(7) != "Cluster 7" {
		t.Errorf("names = %q %q", clusterName(4), clusterName(7))
	}
}

func TestStandardize(t *testing.T) {
	got := standardize([][]float64{{1, 5}, {3, 5}})
	if got[0][0] != -1 || got[1][0] != 1 || got[0][1] != 0 {
		t.Errorf("standardize() = %v", got)
	}
}

func TestAtRisk(t *testing.T) {
	customers := []models.Customer{
		{CustomerID: "low", ChurnProbability: 0.4, LifetimeValue: 5000},
		{CustomerID: "vip", ChurnProbability: 0.9, LifetimeValue: 2000},
		{CustomerID: "frequent", ChurnProbability: 0.86, LifetimeValue: 300, TotalOrders: 12},
		{CustomerID: "casual", ChurnProbability: 0.7, LifetimeValue: 10, TotalOrders: 1},
		{CustomerID: "unscored"},
	}

	res := AtRisk(customers, 0.7, 100)
	if res.TotalAtRisk != 3 {
		t.Fatalf("total = %d, want 3", res.TotalAtRisk)
	}
	want := []struct {
		id, level, action string
	}{
		{"vip", RiskCritical, "Priority win-back campaign with personalized offer"},
		{"frequent", RiskCritical, "Re-engagement email with discount"},
		{"casual", RiskHigh, "Survey to understand pain points"},
	}
	for i, w := range want {
		got := res.Customers[i]
		if got.CustomerID != w.id || got.RiskLevel != w.level || got.RecommendedAction != w.action {
			t.Errorf("row %d = %+v, want %+v", i, got, w)
		}
	}

	if limited := AtRisk(customers, 0.5, 1); limited.TotalAtRisk != 1 || limited.Customers[0].CustomerID != "vip" {
		t.Errorf("limited = %+v", limited)
	}
	if none := AtRisk(nil, 0.5, 10); none.Customers == nil || none.TotalAtRisk != 0 {
		t.Errorf("empty = %+v", none)
	}
}

func TestRecommend(t *testing.T) {
	buy := func(c, p string, usd float64) models.Transaction {
		return models.Transaction{CustomerID: c, ProductID: p, ProductName: "name " + p, Category: "cat", TotalAmountUSD: usd}
	}
	txs := []models.Transaction{
		buy("C1", "P1", 10), buy("C1", "P2", 10), buy("C1", "P3", 10),
		buy("C2", "P1", 10), buy("C2", "P2", 5),
		buy("C3", "P2", 10), buy("C3", "P4", 99),
	}

	res := Recommend(txs, "P1", 10)
	if res.TotalCustomersAnalyzed != 2 || len(res.Recommendations) != 2 {
		t.Fatalf("result = %+v", res)
	}
	top := res.Recommendations[0]
	if top.ProductID != "P2" || top.Score != 100 || top.CustomerCount != 2 || top.Revenue != 15 {
		t.Errorf("top = %+v", top)
	}
	if res.Recommendations[1].ProductID != "P3" || res.Recommendations[1].Score != 50 {
		t.Errorf("second = %+v", res.Recommendations[1])
	}

	if limited := Recommend(txs, "P1", 1); len(limited.Recommendations) != 1 {
		t.Errorf("topN not applied: %+v", limited.Recommendations)
	}

	missing := Recommend(txs, "nope", 10)
	if missing.Message == "" || missing.Recommendations == nil || len(missing.Recommendations) != 0 {
		t.Errorf("unknown product = %+v", missing)
	}
}

func TestForecastDemand(t *testing.T) {
	products := []models.Product{
		{ProductID: "P1", Category: "A", StockQuantity: 5},
		{ProductID: "P2", Category: "B", StockQuantity: 70},
		{ProductID: "P3", Category: "C", StockQuantity: 1000},
	}
	var txs []models.Transaction
	for i := range 30 {
		txs = append(txs,
			models.Transaction{ProductID: "P1", ProductName: "one", Date: day(-i), Quantity: 3},
			models.Transaction{ProductID: "P2", ProductName: "two", Date: day(-i), Quantity: 3},
		)
	}
	txs = append(txs,
		models.Transaction{ProductID: "P3", ProductName: "three", Date: day(-5), Quantity: 9},
		models.Transaction{ProductID: "P3", ProductName: "three", Date: day(-200), Quantity: 500},
		models.Transaction{ProductID: "GHOST", Date: day(-1), Quantity: 999},
	)

	rep := ForecastDemand(txs, products, 50, asOf)
	if rep.TotalProductsAnalyzed != 3 || rep.CriticalProducts != 1 {
		t.Fatalf("report = %+v", rep)
	}

	tests := []struct {
		id      string
		f30     int
		risk    string
		reorder int
	}{
		{"P1", 33, RiskCritical, 61},
		{"P2", 33, RiskMedium, 29},
		{"P3", 3, RiskLow, 0},
	}
	for i, tt := range tests {
		got := rep.Products[i]
		if got.ProductID != tt.id || got.ForecastedDemand30d != tt.f30 || got.StockOutRisk != tt.risk || got.RecommendedReorder != tt.reorder {
			t.Errorf("row %d = %+v", i, got)
		}
	}
	if rep.Products[0].AvgUnitsPerOrder != 3 || rep.Products[0].HistoricalOrders != 30 {
		t.Errorf("P1 history = %+v", rep.Products[0])
	}

	if top := ForecastDemand(txs, products, 1, asOf); len(top.Products) != 1 {
		t.Errorf("topN not applied")
	}
}

func anomalySeries() []models.Transaction {
	var txs []models.Transaction
	for i := range 60 {
		d := day(-i)
		n := 2
		usd := 50 + float64(i%5)
		if i == 20 {
			n, usd = 40, 25
		}
		for range n {
			txs = append(txs, models.Transaction{Date: d, TotalAmountUSD: usd})
		}
	}
	return txs
}

func TestDetectAnomalies(t *testing.T) {
	txs := anomalySeries()

	rep, err := DetectAnomalies(txs, 0.05, 90, asOf)
	if err != nil {
		t.Fatalf("DetectAnomalies() error = %v", err)
	}
	if rep.TotalDaysAnalyzed != 60 || rep.AnomaliesDetected != 3 || len(rep.Anomalies) != 3 {
		t.Fatalf("report = %+v", rep)
	}

	spike := day(-20).Format(dateLayout)
	found := false
	for i, a := range rep.Anomalies {
		if i > 0 && a.Day < rep.Anomalies[i-1].Day {
			t.Error("anomalies not in date order")
		}
		if a.Day == spike {
			found = true
			if a.Severity != RiskCritical || a.Orders != 40 || a.DeviationPct <= 50 {
				t.Errorf("spike = %+v", a)
			}
		}
	}
	if !found {
		t.Errorf("spike day %s not flagged: %+v", spike, rep.Anomalies)
	}

	again, _ := DetectAnomalies(txs, 0.05, 90, asOf)
	if !reflect.DeepEqual(rep, again) {
		t.Error("detection should be deterministic")
	}

	window, _ := DetectAnomalies(txs, 0.05, 30, asOf)
	if window.TotalDaysAnalyzed != 31 {
		t.Errorf("30 day window analyzed %d days, want 31", window.TotalDaysAnalyzed)
	}
}

func TestDetectAnomalies_Errors(t *testing.T) {
	if _, err := DetectAnomalies(anomalySeries()[:4], 0.05, 90, asOf); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short series error = %v", err)
	}
	if _, err := DetectAnomalies(anomalySeries(), 0, 90, asOf); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero contamination error = %v", err)
	}
}

func TestAnomalySeverity(t *testing.T) {
	tests := map[float64]string{80: RiskCritical, -60: RiskCritical, 30: RiskHigh, -26: RiskHigh, 10: RiskMedium}
	for dev, want := range tests {
		if got := anomalySeverity(dev); got != want {
			t.Errorf("anomalySeverity(%v) = %s, want %s", dev, got, want)
		}
	}
}

func TestIsolationForest_ScoresOutlierHigher(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	points := make([][]float64, 0, 101)
	for range 100 {
		points = append(points, []float64{rng.NormFloat64(), rng.NormFloat64()})
	}
	outlier := []float64{8, 8}
	points = append(points, outlier)

	f := fitIsolationForest(points, 100, 256, rng)
	if f.sampleSize != 101 {
		t.Errorf("sample size = %d, want 101", f.sampleSize)
	}
	if in, out := f.score([]float64{0, 0}), f.score(outlier); out <= in {
		t.Errorf("outlier score %v <= inlier score %v", out, in)
	}
}
