// Package generator produces deterministic synthetic ecommerce data and
// blends it with the real Online Retail export into one unified history.
package generator

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/segment"
)

const (
	historyDays = 730
	// Nov/Dec dates are accepted 1.7x as often as other months.
	seasonalBoost = 1.7
)

// Generator draws every random value from one seeded faker, so a seed and a
// reference time fully determine the output.
type Generator struct {
	f   *gofakeit.Faker
	now time.Time
}

func New(seed uint64, now time.Time) *Generator {
	return &Generator{f: gofakeit.New(seed), now: now.UTC()}
}

// All generates products, customers and then transactions that reference
// them.
func (g *Generator) All(nTransactions, nCustomers, nProducts int) *models.Dataset {
	products := g.Products(nProducts)
	customers := g.Customers(nCustomers)
	return &models.Dataset{
		Products:     products,
		Customers:    customers,
		Transactions: g.Transactions(nTransactions, customers, products),
		Source:       "generated",
		LoadedAt:     g.now,
	}
}

// Products spreads n products evenly across categories.
func (g *Generator) Products(n int) []models.Product {
	perCategory := max(n/len(Categories), 1)
	products := make([]models.Product, 0, perCategory*len(Categories))
	launchFrom := g.now.AddDate(-3, 0, 0)

	for _, cat := range Categories {
		for range perCategory {
			sub := g.f.RandomString(cat.Subcategories)
			brand := g.f.RandomString(cat.Brands)
			base := round2(g.f.Float64Range(cat.PriceMin, cat.PriceMax))
			margin := g.f.Float64Range(cat.MarginMin, cat.MarginMax)

			products = append(products, models.Product{
				ProductID:        fmt.Sprintf("P%05d", len(products)+1),
				ProductName:      fmt.Sprintf("%s %s %s", brand, sub, capitalize(g.f.Word())),
				Category:         cat.Name,
				Subcategory:      sub,
				Brand:            brand,
				BasePrice:        base,
				CostPrice:        round2(base * (1 - margin)),
				MarginPercentage: round2(margin * 100),
				StockQuantity:    g.f.IntRange(50, 1000),
				SupplierCountry:  Countries[g.f.IntRange(0, len(Countries)-1)].Name,
				Weight:           round2(g.f.Float64Range(0.1, 10)),
				Rating:           round1(g.f.Float64Range(3.5, 5)),
				ReviewsCount:     g.f.IntRange(10, 5000),
				LaunchDate:       g.f.DateRange(launchFrom, g.now).UTC(),
			})
		}
	}
	return products
}

// Customers draws RFM scores first and derives segment and churn from them.
func (g *Generator) Customers(n int) []models.Customer {
	customers := make([]models.Customer, n)
	regFrom := g.now.AddDate(-5, 0, 0)
	weights := countryWeights()

	for i := range customers {
		recency := g.f.IntRange(1, 365)
		frequency := g.f.IntRange(1, 50)
		monetary := round2(g.f.Float64Range(50, 5000))

		customers[i] = models.Customer{
			CustomerID:        fmt.Sprintf("C%06d", i+1),
			RegistrationDate:  g.f.DateRange(regFrom, g.now).UTC(),
			Country:           Countries[g.weighted(weights)].Name,
			Age:               g.f.IntRange(18, 80),
			Gender:            g.f.RandomString([]string{"Male", "Female", "Other"}),
			LifetimeValue:     monetary,
			TotalOrders:       frequency,
			AvgOrderValue:     round2(monetary / float64(frequency)),
			LastPurchaseDate:  g.now.AddDate(0, 0, -recency),
			RecencyScore:      recency,
			FrequencyScore:    frequency,
			MonetaryScore:     monetary,
			RFMSegment:        segment.RFM(recency, frequency, monetary),
			ChurnProbability:  segment.ChurnProbability(recency),
			PreferredCategory: Categories[g.f.IntRange(0, len(Categories)-1)].Name,
		}
	}
	return customers
}

// Transactions samples n order lines over the last 730 days. When products
// or customers are empty, placeholder ids and category prices are used.
func (g *Generator) Transactions(n int, customers []models.Customer, products []models.Product) []models.Transaction {
	txs := make([]models.Transaction, n)
	weights := countryWeights()

	for i := range txs {
		country := Countries[g.weighted(weights)]
		city := g.f.RandomString(country.Cities)
		region := city
		if country.Name == "USA" {
			region = g.f.State()
		}

		tx := models.Transaction{
			TransactionID:   fmt.Sprintf("T%08d", i+1),
			Date:            g.seasonalDate(),
			Country:         country.Name,
			Region:          region,
			City:            city,
			Quantity:        g.f.IntRange(1, 10),
			DiscountApplied: discountLadder[g.f.IntRange(0, len(discountLadder)-1)],
			PaymentMethod:   g.f.RandomString(PaymentMethods),
			ShippingCost:    round2(g.f.Float64Range(5, 30)),
			DeliveryTime:    g.f.IntRange(5, 30),
			DeviceType:      DeviceTypes[g.weighted(deviceWeights)],
			TrafficSource:   TrafficSources[g.weighted(trafficWeights)],
			Currency:        country.Currency,
			ExchangeRate:    country.ExchangeRate,
		}

		if len(products) > 0 {
			p := products[g.f.IntRange(0, len(products)-1)]
			tx.ProductID, tx.ProductName = p.ProductID, p.ProductName
			tx.Category, tx.Subcategory = p.Category, p.Subcategory
			tx.UnitPrice, tx.CostPrice = p.BasePrice, p.CostPrice
		} else {
			cat := Categories[g.f.IntRange(0, len(Categories)-1)]
			tx.ProductID = fmt.Sprintf("P%05d", g.f.IntRange(1, 500))
			tx.ProductName = cat.Name + " Product"
			tx.Category, tx.Subcategory = cat.Name, g.f.RandomString(cat.Subcategories)
			tx.UnitPrice = round2(g.f.Float64Range(cat.PriceMin, cat.PriceMax))
			tx.CostPrice = round2(tx.UnitPrice * 0.6)
		}

		if len(customers) > 0 {
			c := customers[g.f.IntRange(0, len(customers)-1)]
			tx.CustomerID, tx.CustomerSegment = c.CustomerID, c.RFMSegment
		} else {
			tx.CustomerID = fmt.Sprintf("C%06d", g.f.IntRange(1, 50000))
			tx.CustomerSegment = g.f.RandomString([]string{"VIP", "Regular", "New", "Churned"})
		}

		tx.TotalAmount = round2(float64(tx.Quantity) * tx.UnitPrice * (1 - tx.DiscountApplied))
		tx.Normalize()
		txs[i] = tx
	}
	return txs
}

// seasonalDate draws a timestamp in the history window, resampling dates
// outside November and December so the holiday months are over-represented.
func (g *Generator) seasonalDate() time.Time {
	for {
		daysBack := g.f.IntRange(0, historyDays)
		d := g.now.AddDate(0, 0, -daysBack).
			Add(time.Duration(g.f.IntRange(0, 86399)) * time.Second)
		if d.After(g.now) {
			d = g.now
		}
		if m := d.Month(); m == time.November || m == time.December {
			return d
		}
		if g.f.Float64() < 1/seasonalBoost {
			return d
		}
	}
}

// weighted returns an index drawn proportionally to weights.
func (g *Generator) weighted(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := g.f.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

func countryWeights() []float64 {
	w := make([]float64, len(Countries))
	for i, c := range Countries {
		w[i] = c.Weight
	}
	return w
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
