// Command seed builds the dashboard dataset offline. It either generates a
// synthetic dataset or unifies the Online Retail export with synthetic data,
// writes parquet snapshots, and optionally loads the result into the SQL
// store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/generator"
	"ecommerce-analytics/internal/loader"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/observability"
	"ecommerce-analytics/internal/store"
)

const defaultGapScale = 0.35

type options struct {
	Unify    bool
	GapScale float64
	OutDir   string
	WriteCSV bool
	SeedDB   bool
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	opts := options{}
	fs.BoolVar(&opts.Unify, "unify", false, "merge the Online Retail CSV with synthetic data")
	fs.Float64Var(&opts.GapScale, "gap-scale", defaultGapScale, "volume multiplier for the synthesized 2012-2022 history")
	fs.StringVar(&opts.OutDir, "out", cfg.Data.Dir, "snapshot output directory")
	fs.BoolVar(&opts.WriteCSV, "csv", false, "also write CSV copies of the dataset")
	fs.BoolVar(&opts.SeedDB, "db", false, "migrate and seed the configured database")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.GapScale <= 0 {
		return opts, fmt.Errorf("gap-scale must be positive, got %v", opts.GapScale)
	}
	return opts, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		color.Red("failed to load configuration: %v", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		color.Red("%v", err)
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, opts, logger, os.Stdout); err != nil {
		color.Red("seed failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger, out io.Writer) error {
	start := time.Now()
	gen := generator.New(cfg.Data.Seed, start.UTC())

	logger.Info("generating synthetic dataset",
		"transactions", cfg.Data.Transactions,
		"customers", cfg.Data.Customers,
		"products", cfg.Data.Products,
		"seed", cfg.Data.Seed)
	ds := gen.All(cfg.Data.Transactions, cfg.Data.Customers, cfg.Data.Products)

	if opts.Unify {
		rows, err := readRetail(ctx, cfg.Data.RetailCSV, logger)
		if err != nil {
			return err
		}
		ds = gen.UnifiedFrom(rows, ds, opts.GapScale)
	}

	files := loader.SnapshotFiles(opts.OutDir, opts.Unify)
	if err := loader.WriteSnapshot(files, ds); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	written := files.Paths()

	if opts.WriteCSV {
		paths, err := writeCSVs(opts.OutDir, ds)
		if err != nil {
			return err
		}
		written = append(written, paths...)
	}

	if opts.SeedDB {
		if err := seedDatabase(ctx, cfg.Database, ds, logger); err != nil {
			return err
		}
	}

	printSummary(out, ds, written, opts.SeedDB, time.Since(start))
	return nil
}

func readRetail(ctx context.Context, path string, logger *slog.Logger) ([]loader.RetailRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open retail export: %w", err)
	}
	defer f.Close()

	res, err := loader.ReadRetailCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if res.Skipped > 0 {
		logger.Warn("skipped invalid rows", "file", path, "skipped", res.Skipped)
	}
	logger.Info("read retail export", "file", path, "rows", len(res.Rows))
	return res.Rows, nil
}

func writeCSVs(dir string, ds *models.Dataset) ([]string, error) {
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"transactions.csv", func(w io.Writer) error { return loader.WriteTransactionsCSV(w, ds.Transactions) }},
		{"customers.csv", func(w io.Writer) error { return loader.WriteCustomersCSV(w, ds.Customers) }},
		{"products.csv", func(w io.Writer) error { return loader.WriteProductsCSV(w, ds.Products) }},
	}

	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := wr.write(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func seedDatabase(ctx context.Context, cfg config.DatabaseConfig, ds *models.Dataset, logger *slog.Logger) error {
	st, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	return st.SeedDataset(ctx, ds)
}

func printSummary(w io.Writer, ds *models.Dataset, files []string, seeded bool, elapsed time.Duration) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	label := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s dataset ready in %s\n", ok("✓"), elapsed.Round(time.Millisecond))
	for _, k := range []string{"transactions", "customers", "products"} {
		fmt.Fprintf(w, "  %s %d\n", label(fmt.Sprintf("%-13s", k)), ds.Counts()[k])
	}
	if len(ds.Transactions) > 0 {
		first, last := ds.Transactions[0].Date, ds.Transactions[0].Date
		for _, tx := range ds.Transactions {
			if tx.Date.Before(first) {
				first = tx.Date
			}
			if tx.Date.After(last) {
				last = tx.Date
			}
		}
		fmt.Fprintf(w, "  %s %s to %s\n", label(fmt.Sprintf("%-13s", "date range")),
			first.Format("2006-01-02"), last.Format("2006-01-02"))
	}
	for _, f := range files {
		fmt.Fprintf(w, "  %s %s\n", label(fmt.Sprintf("%-13s", "wrote")), f)
	}
	if seeded {
		fmt.Fprintf(w, "  %s database seeded\n", ok("✓"))
	}
}
