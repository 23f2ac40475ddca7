package models

import (
	"testing"
	"time"
)

func TestTransaction_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		tx         Transaction
		wantUSD    float64
		wantProfit float64
		wantRate   float64
	}{
		{
			name:       "usd",
			tx:         Transaction{TotalAmount: 100, ExchangeRate: 1, CostPrice: 30, Quantity: 2},
			wantUSD:    100,
			wantProfit: 40,
			wantRate:   1,
		},
		{
			name:       "euro rounding",
			tx:         Transaction{TotalAmount: 92, ExchangeRate: 0.92, CostPrice: 10.005, Quantity: 3},
			wantUSD:    100,
			wantProfit: 61.99,
			wantRate:   0.92,
		},
		{
			name:       "zero rate defaults to one",
			tx:         Transaction{TotalAmount: 10.555, ExchangeRate: 0, CostPrice: 5, Quantity: 1},
			wantUSD:    10.56,
			wantProfit: 5.56,
			wantRate:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := tt.tx
			tx.Normalize()
			if tx.TotalAmountUSD != tt.wantUSD {
				t.Errorf("TotalAmountUSD = %v, want %v", tx.TotalAmountUSD, tt.wantUSD)
			}
			if tx.Profit != tt.wantProfit {
				t.Errorf("Profit = %v, want %v", tx.Profit, tt.wantProfit)
			}
			if tx.ExchangeRate != tt.wantRate {
				t.Errorf("ExchangeRate = %v, want %v", tx.ExchangeRate, tt.wantRate)
			}
		})
	}
}

func TestTransaction_NormalizeUsesRoundedTotal(t *testing.T) {
	quantity, unitPrice := 6, 2.55
	tx := Transaction{
		Quantity:     quantity,
		TotalAmount:  float64(quantity) * unitPrice,
		ExchangeRate: 0.8,
		CostPrice:    unitPrice * 0.6,
	}
	tx.Normalize()

	if tx.TotalAmount != 15.3 {
		t.Fatalf("TotalAmount = %v, want 15.3", tx.TotalAmount)
	}
	if tx.TotalAmountUSD != 19.13 {
		t.Errorf("TotalAmountUSD = %v, want 19.13 (15.30 / 0.8 rounded)", tx.TotalAmountUSD)
	}
	if tx.Profit != 6.12 {
		t.Errorf("Profit = %v, want 6.12", tx.Profit)
	}
}

func TestTransaction_MarginPct(t *testing.T) {
	tx := Transaction{TotalAmountUSD: 200, Profit: 50}
	if pct, ok := tx.MarginPct(); !ok || pct != 25 {
		t.Errorf("MarginPct() = %v, %v", pct, ok)
	}
	if _, ok := (&Transaction{}).MarginPct(); ok {
		t.Error("zero revenue should not yield a margin")
	}
}

func TestDataset_DateRangeAndIndex(t *testing.T) {
	d := &Dataset{
		Transactions: []Transaction{
			{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		Products: []Product{{ProductID: "P00001", StockQuantity: 3}},
	}

	first, last := d.DateRange()
	if first.Month() != time.January || last.Month() != time.March {
		t.Errorf("DateRange() = %v, %v", first, last)
	}
	if p := d.ProductIndex()["P00001"]; p == nil || p.StockQuantity != 3 {
		t.Error("ProductIndex() missing product")
	}
	if (&Dataset{}).Empty() != true || d.Empty() {
		t.Error("Empty() mismatch")
	}
}
