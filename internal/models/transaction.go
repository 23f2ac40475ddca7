package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one order line. TotalAmountUSD and Profit are derived at
// write time by Normalize and are not re-checked afterwards.
type Transaction struct {
	TransactionID   string    `json:"transaction_id" gorm:"primaryKey;size:24"`
	Date            time.Time `json:"date" gorm:"index;not null"`
	CustomerID      string    `json:"customer_id" gorm:"index;size:24"`
	Country         string    `json:"country" gorm:"index;size:64"`
	Region          string    `json:"region" gorm:"size:128"`
	City            string    `json:"city" gorm:"size:128"`
	ProductID       string    `json:"product_id" gorm:"index;size:24"`
	ProductName     string    `json:"product_name" gorm:"size:255"`
	Category        string    `json:"category" gorm:"index;size:64"`
	Subcategory     string    `json:"subcategory" gorm:"size:64"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	TotalAmount     float64   `json:"total_amount"`
	DiscountApplied float64   `json:"discount_applied"`
	PaymentMethod   string    `json:"payment_method" gorm:"size:32"`
	ShippingCost    float64   `json:"shipping_cost"`
	DeliveryTime    int       `json:"delivery_time"`
	CustomerSegment string    `json:"customer_segment" gorm:"size:64"`
	DeviceType      string    `json:"device_type" gorm:"size:32"`
	TrafficSource   string    `json:"traffic_source" gorm:"size:32"`
	Currency        string    `json:"currency" gorm:"size:8"`
	ExchangeRate    float64   `json:"exchange_rate"`
	TotalAmountUSD  float64   `json:"total_amount_usd" gorm:"column:total_amount_usd"`
	CostPrice       float64   `json:"cost_price"`
	Profit          float64   `json:"profit"`
}

func (Transaction) TableName() string { return "transactions" }

// Normalize fills the derived money columns from the source columns:
// total_amount_usd = total_amount / exchange_rate and
// profit = total_amount - cost_price*quantity, both rounded to cents and
// both computed from the already rounded total_amount.
// A non-positive exchange rate is treated as 1.
func (t *Transaction) Normalize() {
	total := decimal.NewFromFloat(t.TotalAmount).Round(2)
	rate := decimal.NewFromFloat(t.ExchangeRate)
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
		t.ExchangeRate = 1
	}

	t.TotalAmount = total.InexactFloat64()
	t.TotalAmountUSD = total.Div(rate).Round(2).InexactFloat64()

	cost := decimal.NewFromFloat(t.CostPrice).Mul(decimal.NewFromInt(int64(t.Quantity)))
	t.Profit = total.Sub(cost).Round(2).InexactFloat64()
}

// Day truncates the transaction timestamp to its UTC calendar day.
func (t *Transaction) Day() time.Time {
	d := t.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// MarginPct is profit as a percentage of USD revenue; ok is false when the
// USD amount is zero.
func (t *Transaction) MarginPct() (pct float64, ok bool) {
	if t.TotalAmountUSD == 0 {
		return 0, false
	}
	return t.Profit / t.TotalAmountUSD * 100, true
}
