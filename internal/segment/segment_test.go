package segment

import (
	"testing"
	"time"

	"ecommerce-analytics/internal/models"
)

func TestRFM(t *testing.T) {
	tests := []struct {
		recency, frequency int
		monetary           float64
		want               string
	}{
		{10, 12, 1500, Champions},
		{10, 12, 900, LoyalCustomers},
		{45, 8, 100, LoyalCustomers},
		{80, 6, 100, PotentialLoyalists},
		{50, 2, 100, RecentCustomers},
		{80, 4, 600, Promising},
		{110, 4, 100, NeedingAttention},
		{170, 2, 100, AboutToSleep},
		{200, 1, 900, AtRisk},
		{280, 1, 1200, CantLoseThem},
		{330, 1, 100, Hibernating},
		{330, 4, 100, Lost},
		{400, 1, 5000, Lost},
	}

	for _, tt := range tests {
		if got := RFM(tt.recency, tt.frequency, tt.monetary); got != tt.want {
			t.Errorf("RFM(%d, %d, %.0f) = %q, want %q", tt.recency, tt.frequency, tt.monetary, got, tt.want)
		}
	}
}

func TestChurnProbability(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 0},
		{-5, 0},
		{73, 0.2},
		{100, 0.274},
		{365, 0.95},
		{1000, 0.95},
	}
	for _, tt := range tests {
		if got := ChurnProbability(tt.days); got != tt.want {
			t.Errorf("ChurnProbability(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), TotalAmountUSD: 400, Country: "UK", Category: "Home"},
		{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), TotalAmountUSD: 700, Country: "UK", Category: "Books"},
		{Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), TotalAmountUSD: 100, Country: "France", Category: "Home"},
	}

	c := Snapshot(models.Customer{CustomerID: "C000001", Age: 30}, txs, asOf)

	if c.RecencyScore != 20 {
		t.Errorf("recency = %d, want 20", c.RecencyScore)
	}
	if c.TotalOrders != 3 || c.FrequencyScore != 3 {
		t.Errorf("frequency = %d", c.TotalOrders)
	}
	if c.LifetimeValue != 1200 || c.AvgOrderValue != 400 {
		t.Errorf("ltv=%v aov=%v", c.LifetimeValue, c.AvgOrderValue)
	}
	if c.RFMSegment != RecentCustomers {
		t.Errorf("segment = %q", c.RFMSegment)
	}
	if c.Country != "UK" || c.PreferredCategory != "Home" {
		t.Errorf("country=%q category=%q", c.Country, c.PreferredCategory)
	}
	if !c.RegistrationDate.Equal(txs[1].Date) {
		t.Errorf("registration = %v", c.RegistrationDate)
	}
	if c.Age != 30 {
		t.Error("demographics should be preserved")
	}
}
