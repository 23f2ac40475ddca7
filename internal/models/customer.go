package models

import "time"

// Customer carries precomputed RFM scores. RFMSegment and ChurnProbability
// are snapshots taken when the record was produced and go stale as new
// transactions arrive.
type Customer struct {
	CustomerID        string    `json:"customer_id" gorm:"primaryKey;size:24"`
	RegistrationDate  time.Time `json:"registration_date"`
	Country           string    `json:"country" gorm:"index;size:64"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender" gorm:"size:16"`
	LifetimeValue     float64   `json:"lifetime_value" gorm:"index"`
	TotalOrders       int       `json:"total_orders"`
	AvgOrderValue     float64   `json:"avg_order_value"`
	LastPurchaseDate  time.Time `json:"last_purchase_date"`
	RecencyScore      int       `json:"recency_score"`
	FrequencyScore    int       `json:"frequency_score"`
	MonetaryScore     float64   `json:"monetary_score"`
	RFMSegment        string    `json:"rfm_segment" gorm:"column:rfm_segment;index;size:64"`
	ChurnProbability  float64   `json:"churn_probability" gorm:"index"`
	PreferredCategory string    `json:"preferred_category" gorm:"size:64"`
}

func (Customer) TableName() string { return "customers" }
