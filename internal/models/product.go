package models

import "time"

type Product struct {
	ProductID        string    `json:"product_id" gorm:"primaryKey;size:24"`
	ProductName      string    `json:"product_name" gorm:"size:255"`
	Category         string    `json:"category" gorm:"index;size:64"`
	Subcategory      string    `json:"subcategory" gorm:"size:64"`
	Brand            string    `json:"brand" gorm:"size:64"`
	BasePrice        float64   `json:"base_price"`
	CostPrice        float64   `json:"cost_price"`
	MarginPercentage float64   `json:"margin_percentage"`
	StockQuantity    int       `json:"stock_quantity"`
	SupplierCountry  string    `json:"supplier_country" gorm:"size:64"`
	Weight           float64   `json:"weight"`
	Rating           float64   `json:"rating" gorm:"index"`
	ReviewsCount     int       `json:"reviews_count"`
	LaunchDate       time.Time `json:"launch_date"`
}

func (Product) TableName() string { return "products" }
