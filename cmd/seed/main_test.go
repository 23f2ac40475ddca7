package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/loader"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{Data: config.DataConfig{
		Dir:          t.TempDir(),
		Seed:         42,
		Transactions: 100,
		Customers:    20,
		Products:     10,
	}}
}

func TestParseFlags(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{name: "defaults", args: nil, want: options{GapScale: defaultGapScale, OutDir: cfg.Data.Dir}},
		{
			name: "unify with csv and db",
			args: []string{"-unify", "-gap-scale", "0.5", "-out", "snap", "-csv", "-db"},
			want: options{Unify: true, GapScale: 0.5, OutDir: "snap", WriteCSV: true, SeedDB: true},
		},
		{name: "non-positive scale", args: []string{"-gap-scale", "0"}, wantErr: true},
		{name: "unknown flag", args: []string{"-verbose"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRun_Generate(t *testing.T) {
	cfg := testConfig(t)
	opts := options{GapScale: defaultGapScale, OutDir: cfg.Data.Dir, WriteCSV: true}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, opts, testLogger(), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	files, ok := loader.LocateSnapshot(cfg.Data.Dir, true)
	if !ok || files.Unified {
		t.Fatalf("LocateSnapshot() = %+v, %v; want the plain snapshot", files, ok)
	}
	ds, err := loader.ReadSnapshot(context.Background(), files)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(ds.Transactions) != 100 || len(ds.Customers) != 20 || len(ds.Products) != 8 {
		t.Errorf("snapshot counts = %v, want 100/20/8 (one product per category per 8 requested)", ds.Counts())
	}

	for _, name := range []string{"transactions.csv", "customers.csv", "products.csv"} {
		if _, err := os.Stat(filepath.Join(cfg.Data.Dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	summary := out.String()
	for _, s := range []string{"dataset ready", "transactions", "100", "transactions.parquet", "products.csv"} {
		if !strings.Contains(summary, s) {
			t.Errorf("summary missing %q:\n%s", s, summary)
		}
	}
}

func TestRun_Unify(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.RetailCSV = filepath.Join(t.TempDir(), "online_retail.csv")
	retail := strings.Join([]string{
		"InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country",
		"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850.0,United Kingdom",
		"536366,22633,HAND WARMER UNION JACK,6,12/1/2010 8:28,1.85,17850.0,United Kingdom",
		"C536379,D,Discount,-1,12/1/2010 9:41,27.50,14527.0,United Kingdom",
	}, "\n")
	if err := os.WriteFile(cfg.Data.RetailCSV, []byte(retail), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := options{Unify: true, GapScale: 0.001, OutDir: cfg.Data.Dir}
	if err := run(context.Background(), cfg, opts, testLogger(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	files, ok := loader.LocateSnapshot(cfg.Data.Dir, true)
	if !ok || !files.Unified {
		t.Fatalf("LocateSnapshot() = %+v, %v; want the unified snapshot", files, ok)
	}
	ds, err := loader.ReadSnapshot(context.Background(), files)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(ds.Transactions) < 102 {
		t.Errorf("got %d transactions, want the 2 valid retail rows plus synthetic history", len(ds.Transactions))
	}
	if first := ds.Transactions[0]; first.TransactionID != "R0000001" || first.Currency != "GBP" {
		t.Errorf("first transaction = %s %s, want the oldest retail order", first.TransactionID, first.Currency)
	}
}

func TestRun_MissingRetailExport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.RetailCSV = filepath.Join(t.TempDir(), "missing.csv")

	opts := options{Unify: true, GapScale: 1, OutDir: cfg.Data.Dir}
	if err := run(context.Background(), cfg, opts, testLogger(), &bytes.Buffer{}); err == nil {
		t.Error("run() should fail without the retail export")
	}
}
