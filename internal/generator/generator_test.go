package generator

import (
	"math"
	"reflect"
	"testing"
	"time"

	"ecommerce-analytics/internal/loader"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/segment"
)

var refNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func TestGenerator_Deterministic(t *testing.T) {
	a := New(7, refNow).All(200, 50, 40)
	b := New(7, refNow).All(200, 50, 40)
	if !reflect.DeepEqual(a.Transactions, b.Transactions) {
		t.Error("same seed should produce identical transactions")
	}
	c := New(8, refNow).All(200, 50, 40)
	if reflect.DeepEqual(a.Transactions, c.Transactions) {
		t.Error("different seeds should produce different transactions")
	}
}

func TestGenerator_Products(t *testing.T) {
	products := New(1, refNow).Products(100)
	if len(products) != 96 {
		t.Fatalf("len = %d, want 96 (12 per category)", len(products))
	}
	if products[0].ProductID != "P00001" || products[95].ProductID != "P00096" {
		t.Errorf("ids = %s..%s", products[0].ProductID, products[95].ProductID)
	}
	for _, p := range products {
		if p.CostPrice > p.BasePrice {
			t.Errorf("%s cost %v above base %v", p.ProductID, p.CostPrice, p.BasePrice)
		}
		if p.Rating < 3.5 || p.Rating > 5 {
			t.Errorf("%s rating %v", p.ProductID, p.Rating)
		}
	}
}

func TestGenerator_Customers(t *testing.T) {
	for _, c := range New(1, refNow).Customers(300) {
		if want := segment.RFM(c.RecencyScore, c.FrequencyScore, c.MonetaryScore); c.RFMSegment != want {
			t.Fatalf("%s segment %q, want %q", c.CustomerID, c.RFMSegment, want)
		}
		if c.ChurnProbability > 0.95 {
			t.Fatalf("%s churn %v", c.CustomerID, c.ChurnProbability)
		}
	}
}

func TestGenerator_Transactions(t *testing.T) {
	ds := New(3, refNow).All(5000, 100, 80)
	productIDs := make(map[string]bool)
	for _, p := range ds.Products {
		productIDs[p.ProductID] = true
	}

	earliest := refNow.AddDate(0, 0, -historyDays)
	holiday := 0
	for _, tx := range ds.Transactions {
		if tx.Date.Before(earliest) || tx.Date.After(refNow) {
			t.Fatalf("%s date %v outside window", tx.TransactionID, tx.Date)
		}
		if !productIDs[tx.ProductID] {
			t.Fatalf("%s references unknown product %s", tx.TransactionID, tx.ProductID)
		}
		if want := math.Round(tx.TotalAmount/tx.ExchangeRate*100) / 100; math.Abs(tx.TotalAmountUSD-want) > 0.011 {
			t.Fatalf("%s usd %v, want %v", tx.TransactionID, tx.TotalAmountUSD, want)
		}
		if m := tx.Date.Month(); m == time.November || m == time.December {
			holiday++
		}
	}

	// Uniform dates would put about 8% of orders in Nov/Dec.
	if share := float64(holiday) / float64(len(ds.Transactions)); share < 0.11 {
		t.Errorf("holiday share = %.3f, want seasonal boost", share)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		desc, cat, sub string
	}{
		{"WHITE HANGING HEART T-LIGHT HOLDER", "Home", "Decor"},
		{"iphone charger cable", "Electronics", "Gadgets"},
		{"RED RETROSPOT SHOPPER BAG", "Fashion", "Accessories"},
		{"SPACEBOY BIRTHDAY CARD", "Books", "General"},
		{"SOMETHING ELSE", "Home", "Decor"},
		{"", "Home", "Decor"},
	}
	for _, tt := range tests {
		cat, sub := Categorize(tt.desc)
		if cat != tt.cat || sub != tt.sub {
			t.Errorf("Categorize(%q) = %s/%s, want %s/%s", tt.desc, cat, sub, tt.cat, tt.sub)
		}
	}
}

func retailRows() []loader.RetailRow {
	d := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	return []loader.RetailRow{
		{InvoiceNo: "1", StockCode: "85123A", Description: "HEART HOLDER", Quantity: 6, InvoiceDate: d, UnitPrice: 2.55, CustomerID: "17850.0", Country: "United Kingdom"},
		{InvoiceNo: "2", StockCode: "71053", Description: "METAL LANTERN", Quantity: -1, InvoiceDate: d, UnitPrice: 3.39, CustomerID: "17850", Country: "United Kingdom"},
		{InvoiceNo: "3", StockCode: "84406B", Description: "CREAM CUPID", Quantity: 8, InvoiceDate: d, UnitPrice: 0, CustomerID: "17850", Country: "France"},
		{InvoiceNo: "4", StockCode: "84029G", Description: "WOOLLY HOTTIE", Quantity: 6, InvoiceDate: d, UnitPrice: 3.39, CustomerID: "", Country: "France"},
		{InvoiceNo: "5", StockCode: "22752", Description: "TEA SET", Quantity: 100, InvoiceDate: d.AddDate(0, 1, 0), UnitPrice: 7.65, CustomerID: "13047", Country: "Germany"},
		{InvoiceNo: "6", StockCode: "85123A", Description: "HEART HOLDER", Quantity: 2, InvoiceDate: d.AddDate(0, 2, 0), UnitPrice: 2.95, CustomerID: "17850", Country: "Australia"},
	}
}

func TestImportOnlineRetail(t *testing.T) {
	imp := New(1, refNow).ImportOnlineRetail(retailRows())

	if len(imp.Transactions) != 3 {
		t.Fatalf("kept %d rows, want 3", len(imp.Transactions))
	}
	if len(imp.Products) != 2 || imp.Products[1].Category != "Groceries" {
		t.Errorf("products = %+v", imp.Products)
	}
	if len(imp.CustomerIDs) != 2 {
		t.Errorf("customers = %v", imp.CustomerIDs)
	}

	first := imp.Transactions[0]
	if first.TransactionID != "R0000001" || first.CustomerID != "R00001" || first.ProductID != "R00001" {
		t.Errorf("ids = %s %s %s", first.TransactionID, first.CustomerID, first.ProductID)
	}
	if first.Currency != "GBP" || first.TotalAmountUSD != 19.13 {
		t.Errorf("currency %s usd %v, want GBP 19.13", first.Currency, first.TotalAmountUSD)
	}
	if imp.Transactions[2].CustomerID != "R00001" {
		t.Error("17850 and 17850.0 should map to the same customer")
	}
	if imp.Transactions[2].Region != "Australia" {
		t.Errorf("region = %q, want country fallback", imp.Transactions[2].Region)
	}
}

func TestGapYears(t *testing.T) {
	g := New(5, refNow)
	imp := g.ImportOnlineRetail(retailRows())
	synthetic := g.All(100, 20, 16)

	gap := g.GapYears(imp, synthetic, 0.001, 10)
	if len(gap) != 266 {
		t.Fatalf("len = %d, want 266", len(gap))
	}
	if gap[0].TransactionID != "G0000010" {
		t.Errorf("first id = %s", gap[0].TransactionID)
	}
	for _, tx := range gap {
		if y := tx.Date.Year(); y < 2012 || y > 2022 {
			t.Fatalf("%s year %d", tx.TransactionID, y)
		}
		if h := tx.Date.Hour(); h < 8 || h > 20 {
			t.Fatalf("%s hour %d", tx.TransactionID, h)
		}
		if tx.Currency != "USD" || tx.TotalAmountUSD != math.Round(tx.TotalAmount*100)/100 {
			t.Fatalf("%s money fields %+v", tx.TransactionID, tx)
		}
	}
}

func TestUnify(t *testing.T) {
	g := New(9, refNow)
	synthetic := g.All(300, 40, 24)
	ds := g.UnifiedFrom(retailRows(), synthetic, 0.001)

	if want := 3 + 266 + 300; len(ds.Transactions) != want {
		t.Fatalf("len = %d, want %d", len(ds.Transactions), want)
	}
	for i := 1; i < len(ds.Transactions); i++ {
		if ds.Transactions[i].Date.Before(ds.Transactions[i-1].Date) {
			t.Fatal("transactions not sorted by date")
		}
	}
	if ds.Transactions[0].TransactionID != "R0000001" {
		t.Errorf("earliest = %s, want the real export first", ds.Transactions[0].TransactionID)
	}

	byID := make(map[string]models.Customer)
	for _, c := range ds.Customers {
		byID[c.CustomerID] = c
	}
	var orders int
	for _, c := range ds.Customers {
		orders += c.TotalOrders
		if c.RFMSegment == "" {
			t.Fatalf("%s missing segment", c.CustomerID)
		}
	}
	if orders != len(ds.Transactions) {
		t.Errorf("customer orders sum = %d, want %d", orders, len(ds.Transactions))
	}
	if _, ok := byID["R00001"]; !ok {
		t.Error("real customer missing from catalog")
	}

	for _, p := range ds.Products {
		if p.Brand != "Various" || p.BasePrice <= 0 {
			t.Fatalf("product %+v", p)
		}
	}
}
