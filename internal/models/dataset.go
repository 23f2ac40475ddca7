package models

import "time"

// Dataset is the full in-memory view the dashboard serves from. It is
// treated as read-only once published.
type Dataset struct {
	Transactions []Transaction
	Customers    []Customer
	Products     []Product
	Source       string
	LoadedAt     time.Time
}

func (d *Dataset) Empty() bool {
	return d == nil || len(d.Transactions) == 0
}

// ProductIndex maps product ids to catalog entries.
func (d *Dataset) ProductIndex() map[string]*Product {
	idx := make(map[string]*Product, len(d.Products))
	for i := range d.Products {
		idx[d.Products[i].ProductID] = &d.Products[i]
	}
	return idx
}

// DateRange returns the first and last transaction timestamps.
func (d *Dataset) DateRange() (first, last time.Time) {
	for i, tx := range d.Transactions {
		if i == 0 || tx.Date.Before(first) {
			first = tx.Date
		}
		if i == 0 || tx.Date.After(last) {
			last = tx.Date
		}
	}
	return first, last
}

// Counts summarizes table sizes for health and admin output.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"transactions": len(d.Transactions),
		"customers":    len(d.Customers),
		"products":     len(d.Products),
	}
}
