package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ecommerce-analytics/internal/models"
)

func sampleDataset() *models.Dataset {
	d := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return &models.Dataset{
		Transactions: []models.Transaction{
			{TransactionID: "T00000001", Date: d, CustomerID: "C000001", Country: "UK", Category: "Home",
				Quantity: 2, UnitPrice: 19.99, TotalAmount: 39.98, ExchangeRate: 0.79, TotalAmountUSD: 50.61, Profit: 12.5},
			{TransactionID: "T00000002", Date: d.Add(24 * time.Hour), CustomerID: "C000002", Country: "USA", Category: "Books",
				Quantity: 1, UnitPrice: 12, TotalAmount: 12, ExchangeRate: 1, TotalAmountUSD: 12, Profit: 4},
		},
		Customers: []models.Customer{
			{CustomerID: "C000001", Country: "UK", Age: 34, LifetimeValue: 1200.5, RegistrationDate: d.AddDate(-1, 0, 0)},
		},
		Products: []models.Product{
			{ProductID: "P00001", ProductName: "Lamp", Category: "Home", Rating: 4.5, StockQuantity: 120},
		},
	}
}

func TestReadTransactionsCSV(t *testing.T) {
	input := "transaction_id,date,country,quantity,unit_price,total_amount_usd\n" +
		"T1,2024-01-15,UK,2,10.5,21\n" +
		"T2,not-a-date,UK,1,3,3\n" +
		",2024-01-16,UK,1,3,3\n" +
		"T3,2024-01-17 08:15:00,France,,4,4\n"

	res, err := ReadTransactionsCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTransactionsCSV() error = %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if res.Rows[0].Quantity != 2 || res.Rows[0].UnitPrice != 10.5 {
		t.Errorf("row 0 = %+v", res.Rows[0])
	}
	if res.Rows[1].Date.Hour() != 8 || res.Rows[1].Quantity != 0 {
		t.Errorf("row 1 = %+v", res.Rows[1])
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing id column", "date,country\n2024-01-01,UK\n"},
		{"no valid rows", "transaction_id,date\nT1,garbage\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTransactionsCSV(context.Background(), strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadProductsCSV(ctx, strings.NewReader("product_id\nP1\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	ds := sampleDataset()
	var buf bytes.Buffer
	if err := WriteCustomersCSV(&buf, ds.Customers); err != nil {
		t.Fatal(err)
	}
	res, err := ReadCustomersCSV(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	got := res.Rows[0]
	if got.CustomerID != "C000001" || got.LifetimeValue != 1200.5 || !got.RegistrationDate.Equal(ds.Customers[0].RegistrationDate) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestReadRetailCSV(t *testing.T) {
	// 0xA3 is the pound sign in ISO-8859-1.
	input := []byte("InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
		"536365,85123A,WHITE HANGING HEART \xa3 HOLDER,6,12/1/2010 8:26,2.55,17850.0,United Kingdom\n")

	res, err := ReadRetailCSV(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("ReadRetailCSV() error = %v", err)
	}
	row := res.Rows[0]
	if !strings.Contains(row.Description, "£") {
		t.Errorf("Description = %q, want decoded pound sign", row.Description)
	}
	want := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	if !row.InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v, want %v", row.InvoiceDate, want)
	}
	if row.Quantity != 6 || row.CustomerID != "17850.0" {
		t.Errorf("row = %+v", row)
	}
}

func TestParquetSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset()
	files := SnapshotFiles(dir, false)

	if err := WriteSnapshot(files, ds); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	if !files.Exist() {
		t.Fatal("snapshot files should exist")
	}

	got, err := ReadSnapshot(context.Background(), files)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(got.Transactions) != 2 || len(got.Customers) != 1 || len(got.Products) != 1 {
		t.Fatalf("counts = %v", got.Counts())
	}
	tx := got.Transactions[0]
	if tx.TransactionID != "T00000001" || tx.Quantity != 2 || tx.TotalAmountUSD != 50.61 {
		t.Errorf("transaction = %+v", tx)
	}
	if !tx.Date.Equal(ds.Transactions[0].Date) {
		t.Errorf("date = %v, want %v", tx.Date, ds.Transactions[0].Date)
	}
	if got.Products[0].Rating != 4.5 {
		t.Errorf("product = %+v", got.Products[0])
	}
	if !got.Products[0].LaunchDate.IsZero() {
		t.Errorf("zero launch date should round-trip as zero, got %v", got.Products[0].LaunchDate)
	}
}

func TestLocateSnapshot(t *testing.T) {
	dir := t.TempDir()
	if _, ok := LocateSnapshot(dir, true); ok {
		t.Fatal("empty dir should not have a snapshot")
	}

	if err := WriteSnapshot(SnapshotFiles(dir, false), sampleDataset()); err != nil {
		t.Fatal(err)
	}
	files, ok := LocateSnapshot(dir, true)
	if !ok || files.Unified {
		t.Errorf("want plain snapshot, got %+v ok=%v", files, ok)
	}

	if err := WriteSnapshot(SnapshotFiles(dir, true), sampleDataset()); err != nil {
		t.Fatal(err)
	}
	if files, _ := LocateSnapshot(dir, true); !files.Unified {
		t.Error("unified snapshot should take precedence")
	}
	if files, _ := LocateSnapshot(dir, false); files.Unified {
		t.Error("unified snapshot should be ignored when not preferred")
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.parquet")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(src, old, old); err != nil {
		t.Fatal(err)
	}

	c := NewCache(filepath.Join(dir, "cache"))
	if _, err := c.Load("snapshot", src); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Load() before Save error = %v, want ErrCacheMiss", err)
	}

	if err := c.Save("snapshot", sampleDataset()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := c.Load("snapshot", src)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Transactions) != 2 || got.Transactions[1].Country != "USA" {
		t.Errorf("cached dataset = %v", got.Counts())
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, future, future); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load("snapshot", src); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("stale cache error = %v, want ErrCacheMiss", err)
	}

	if err := c.Invalidate("snapshot"); err != nil {
		t.Errorf("Invalidate() error = %v", err)
	}
	if err := c.Invalidate("snapshot"); err != nil {
		t.Errorf("second Invalidate() error = %v", err)
	}
}
