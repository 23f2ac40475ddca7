package generator

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"ecommerce-analytics/internal/loader"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/segment"
)

const (
	// GBP per USD for the real export, so total_amount_usd = total / rate.
	retailExchangeRate = 0.8
	assumedCostRatio   = 0.65
	gapInflation       = 0.03
	gapRealCustomerPct = 0.7
)

// RetailProduct is a catalog entry derived from the real export.
type RetailProduct struct {
	ProductID   string
	StockCode   string
	ProductName string
	Category    string
	Subcategory string
	BasePrice   float64
}

// RetailImport is the real export mapped onto the unified schema.
type RetailImport struct {
	Transactions []models.Transaction
	Products     []RetailProduct
	CustomerIDs  []string
}

// Categorize maps a free-text product description to a category and
// subcategory by keyword.
func Categorize(description string) (string, string) {
	desc := strings.ToUpper(description)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.Keywords {
			if strings.Contains(desc, kw) {
				return ck.Category, ck.Subcategory
			}
		}
	}
	return "Home", "Decor"
}

// ImportOnlineRetail keeps rows with a positive quantity, a positive unit
// price and a customer id, and assigns R-prefixed ids to products and
// customers in order of first appearance.
func (g *Generator) ImportOnlineRetail(rows []loader.RetailRow) RetailImport {
	var (
		imp       RetailImport
		products  = make(map[string]int)
		customers = make(map[string]string)
	)

	for _, row := range rows {
		custID := normalizeCustomerID(row.CustomerID)
		if row.Quantity <= 0 || row.UnitPrice <= 0 || custID == "" || row.StockCode == "" {
			continue
		}

		pi, ok := products[row.StockCode]
		if !ok {
			cat, sub := Categorize(row.Description)
			name := strings.TrimSpace(row.Description)
			if name == "" {
				name = "Product " + row.StockCode
			}
			imp.Products = append(imp.Products, RetailProduct{
				ProductID:   fmt.Sprintf("R%05d", len(imp.Products)+1),
				StockCode:   row.StockCode,
				ProductName: name,
				Category:    cat,
				Subcategory: sub,
				BasePrice:   row.UnitPrice,
			})
			pi = len(imp.Products) - 1
			products[row.StockCode] = pi
		}
		product := imp.Products[pi]

		cid, ok := customers[custID]
		if !ok {
			cid = fmt.Sprintf("R%05d", len(imp.CustomerIDs)+1)
			customers[custID] = cid
			imp.CustomerIDs = append(imp.CustomerIDs, cid)
		}

		region := row.Country
		if cities, ok := realRegions[row.Country]; ok {
			region = g.f.RandomString(cities)
		}

		total := float64(row.Quantity) * row.UnitPrice
		shipping := 0.0
		if total > 50 {
			shipping = round2(g.f.Float64Range(5, 25))
		}

		tx := models.Transaction{
			TransactionID:   fmt.Sprintf("R%07d", len(imp.Transactions)+1),
			Date:            row.InvoiceDate,
			CustomerID:      cid,
			Country:         row.Country,
			Region:          region,
			City:            region,
			ProductID:       product.ProductID,
			ProductName:     product.ProductName,
			Category:        product.Category,
			Subcategory:     product.Subcategory,
			Quantity:        row.Quantity,
			UnitPrice:       row.UnitPrice,
			TotalAmount:     total,
			PaymentMethod:   g.f.RandomString(realPaymentMethods),
			ShippingCost:    shipping,
			DeliveryTime:    g.f.IntRange(2, 10),
			CustomerSegment: g.f.RandomString(realSegments),
			DeviceType:      g.f.RandomString(DeviceTypes),
			TrafficSource:   g.f.RandomString(realTrafficSources),
			Currency:        "GBP",
			ExchangeRate:    retailExchangeRate,
			CostPrice:       row.UnitPrice * assumedCostRatio,
		}
		tx.Normalize()
		imp.Transactions = append(imp.Transactions, tx)
	}
	return imp
}

// GapYears synthesizes 2012-2022 history. Each year's volume is scaled by
// scale. Real products dominate early years and drift toward synthetic ones,
// real prices inflate 3% a year, and 70% of orders go to real customers.
// Transaction ids continue from firstID.
func (g *Generator) GapYears(real RetailImport, synthetic *models.Dataset, scale float64, firstID int) []models.Transaction {
	syntheticCustomers := uniqueCustomers(synthetic.Transactions)
	syntheticProducts := synthetic.Products

	var txs []models.Transaction
	id := firstID
	for _, yc := range gapYearCounts {
		n := int(math.Round(float64(yc.Count) * scale))
		yearStart := time.Date(yc.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		daysInYear := yearStart.AddDate(1, 0, 0).Sub(yearStart).Hours()/24 - 1
		realShare := 1 - float64(yc.Year-2012)/11*0.5

		for range n {
			date := yearStart.AddDate(0, 0, g.f.IntRange(0, int(daysInYear))).
				Add(time.Duration(g.f.IntRange(8, 20))*time.Hour + time.Duration(g.f.IntRange(0, 59))*time.Minute)

			tx := models.Transaction{
				TransactionID:   fmt.Sprintf("G%07d", id),
				Date:            date,
				Quantity:        g.f.IntRange(1, 10),
				PaymentMethod:   g.f.RandomString(gapPaymentMethods),
				ShippingCost:    round2(g.f.Float64Range(5, 30)),
				DeliveryTime:    g.f.IntRange(2, 15),
				CustomerSegment: g.f.RandomString(gapSegments),
				DeviceType:      g.f.RandomString(DeviceTypes),
				TrafficSource:   g.f.RandomString(gapTrafficSources),
				Currency:        "USD",
				ExchangeRate:    1,
			}
			id++

			useReal := g.f.Float64() < realShare
			switch {
			case len(real.Products) > 0 && (useReal || len(syntheticProducts) == 0):
				p := real.Products[g.f.IntRange(0, len(real.Products)-1)]
				tx.ProductID, tx.ProductName = p.ProductID, p.ProductName
				tx.Category, tx.Subcategory = p.Category, p.Subcategory
				tx.UnitPrice = p.BasePrice * (1 + float64(yc.Year-2012)*gapInflation)
			case len(syntheticProducts) > 0:
				p := syntheticProducts[g.f.IntRange(0, len(syntheticProducts)-1)]
				tx.ProductID, tx.ProductName = p.ProductID, p.ProductName
				tx.Category, tx.Subcategory = p.Category, p.Subcategory
				tx.UnitPrice = round2(g.f.Float64Range(10, 500))
			default:
				cat := Categories[g.f.IntRange(0, len(Categories)-1)]
				tx.ProductID, tx.ProductName = "G00000", cat.Name+" Product"
				tx.Category, tx.Subcategory = cat.Name, cat.Subcategories[0]
				tx.UnitPrice = round2(g.f.Float64Range(cat.PriceMin, cat.PriceMax))
			}
			if len(tx.ProductName) > 100 {
				tx.ProductName = tx.ProductName[:100]
			}

			useRealCustomer := g.f.Float64() < gapRealCustomerPct
			switch {
			case len(real.CustomerIDs) > 0 && (useRealCustomer || len(syntheticCustomers) == 0):
				tx.CustomerID = g.f.RandomString(real.CustomerIDs)
			case len(syntheticCustomers) > 0:
				tx.CustomerID = g.f.RandomString(syntheticCustomers)
			default:
				tx.CustomerID = fmt.Sprintf("G%05d", g.f.IntRange(1, 1000))
			}

			country := gapCountries[g.weighted(gapCountryWeights)]
			tx.Country, tx.Region, tx.City = country, country, country

			discount := 0.0
			if g.f.Float64() < 0.3 {
				discount = round2(g.f.Float64Range(0, 0.2))
			}
			tx.DiscountApplied = discount
			tx.TotalAmount = float64(tx.Quantity) * tx.UnitPrice * (1 - discount)
			tx.CostPrice = tx.UnitPrice * assumedCostRatio
			tx.Normalize()

			txs = append(txs, tx)
		}
	}
	return txs
}

// Unify concatenates the three histories, orders them by date and rebuilds
// the product and customer catalogs from the combined transactions. Customer
// RFM fields are recomputed as of asOf.
func (g *Generator) Unify(asOf time.Time, histories ...[]models.Transaction) *models.Dataset {
	var total int
	for _, h := range histories {
		total += len(h)
	}
	txs := make([]models.Transaction, 0, total)
	for _, h := range histories {
		txs = append(txs, h...)
	}
	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		return a.Date.Compare(b.Date)
	})

	return &models.Dataset{
		Transactions: txs,
		Products:     g.unifiedProducts(txs),
		Customers:    g.unifiedCustomers(txs, asOf),
		Source:       "unified",
		LoadedAt:     asOf,
	}
}

func (g *Generator) unifiedProducts(txs []models.Transaction) []models.Product {
	type agg struct {
		idx   int
		sum   float64
		count int
	}
	seen := make(map[string]*agg)
	var products []models.Product
	for _, tx := range txs {
		a, ok := seen[tx.ProductID]
		if !ok {
			a = &agg{idx: len(products)}
			seen[tx.ProductID] = a
			products = append(products, models.Product{
				ProductID:   tx.ProductID,
				ProductName: tx.ProductName,
				Category:    tx.Category,
				Subcategory: tx.Subcategory,
			})
		}
		a.sum += tx.UnitPrice
		a.count++
	}

	launch := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, a := range seen {
		p := &products[a.idx]
		p.BasePrice = round2(a.sum / float64(a.count))
	}
	for i := range products {
		p := &products[i]
		p.Brand = "Various"
		p.CostPrice = round2(p.BasePrice * assumedCostRatio)
		p.MarginPercentage = 35
		p.StockQuantity = g.f.IntRange(50, 999)
		p.SupplierCountry = "UK"
		p.Weight = round2(g.f.Float64Range(0.1, 5))
		p.Rating = round1(g.f.Float64Range(3, 5))
		p.ReviewsCount = g.f.IntRange(10, 999)
		p.LaunchDate = launch
	}
	return products
}

func (g *Generator) unifiedCustomers(txs []models.Transaction, asOf time.Time) []models.Customer {
	byCustomer := make(map[string][]models.Transaction)
	var order []string
	for _, tx := range txs {
		if _, ok := byCustomer[tx.CustomerID]; !ok {
			order = append(order, tx.CustomerID)
		}
		byCustomer[tx.CustomerID] = append(byCustomer[tx.CustomerID], tx)
	}

	customers := make([]models.Customer, len(order))
	for i, id := range order {
		base := models.Customer{
			CustomerID: id,
			Age:        g.f.IntRange(18, 70),
			Gender:     g.f.RandomString([]string{"Male", "Female"}),
		}
		customers[i] = segment.Snapshot(base, byCustomer[id], asOf)
	}
	return customers
}

func uniqueCustomers(txs []models.Transaction) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, tx := range txs {
		if _, ok := seen[tx.CustomerID]; ok {
			continue
		}
		seen[tx.CustomerID] = struct{}{}
		ids = append(ids, tx.CustomerID)
	}
	slices.SortFunc(ids, cmp.Compare[string])
	return ids
}

// normalizeCustomerID strips the float suffix spreadsheets add to numeric
// ids, e.g. "17850.0".
func normalizeCustomerID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimSuffix(id, ".0")
}

// UnifiedFrom runs the full integration: import the real rows, synthesize the
// gap years and merge everything with the synthetic dataset.
func (g *Generator) UnifiedFrom(rows []loader.RetailRow, synthetic *models.Dataset, gapScale float64) *models.Dataset {
	real := g.ImportOnlineRetail(rows)
	gap := g.GapYears(real, synthetic, gapScale, len(real.Transactions)+1)
	return g.Unify(g.now, real.Transactions, gap, synthetic.Transactions)
}
