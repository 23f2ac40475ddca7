// Package dataset loads the dashboard dataset from a configured source and
// keeps a read-only copy in memory until it expires.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/generator"
	"ecommerce-analytics/internal/loader"
	"ecommerce-analytics/internal/models"
)

// ErrNoData means the source has nothing to load yet.
var ErrNoData = errors.New("no data available")

// Source produces a complete dataset.
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Name() string
}

// Snapshot reads parquet snapshot files, preferring the unified set, and
// keeps a decoded copy in the gob cache.
type Snapshot struct {
	Dir           string
	PreferUnified bool
	Cache         *loader.Cache
	Logger        *slog.Logger
}

func (s *Snapshot) Name() string { return config.SourceSnapshot }

func (s *Snapshot) Load(ctx context.Context) (*models.Dataset, error) {
	files, ok := loader.LocateSnapshot(s.Dir, s.PreferUnified)
	if !ok {
		return nil, fmt.Errorf("snapshot in %s: %w", s.Dir, ErrNoData)
	}

	key := "snapshot"
	if files.Unified {
		key = "snapshot_unified"
	}
	return cached(ctx, s.Cache, s.logger(), key, files.Paths(), func(ctx context.Context) (*models.Dataset, error) {
		return loader.ReadSnapshot(ctx, files)
	})
}

func (s *Snapshot) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// CSV reads transactions.csv, customers.csv and products.csv from Dir.
// Only the transactions file is required.
type CSV struct {
	Dir    string
	Cache  *loader.Cache
	Logger *slog.Logger
}

func (c *CSV) Name() string { return config.SourceCSV }

func (c *CSV) Load(ctx context.Context) (*models.Dataset, error) {
	txPath := filepath.Join(c.Dir, "transactions.csv")
	if _, err := os.Stat(txPath); err != nil {
		return nil, fmt.Errorf("%s: %w", txPath, ErrNoData)
	}
	custPath := filepath.Join(c.Dir, "customers.csv")
	prodPath := filepath.Join(c.Dir, "products.csv")

	log := c.Logger
	if log == nil {
		log = slog.Default()
	}

	sources := []string{txPath}
	for _, p := range []string{custPath, prodPath} {
		if _, err := os.Stat(p); err == nil {
			sources = append(sources, p)
		}
	}

	return cached(ctx, c.Cache, log, "csv", sources, func(ctx context.Context) (*models.Dataset, error) {
		ds := &models.Dataset{}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := readCSVFile(gctx, txPath, loader.ReadTransactionsCSV)
			if err != nil {
				return err
			}
			if res.Skipped > 0 {
				log.Warn("skipped invalid rows", "file", txPath, "skipped", res.Skipped)
			}
			ds.Transactions = res.Rows
			return nil
		})
		g.Go(func() error {
			res, err := readCSVFile(gctx, custPath, loader.ReadCustomersCSV)
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			ds.Customers = res.Rows
			return err
		})
		g.Go(func() error {
			res, err := readCSVFile(gctx, prodPath, loader.ReadProductsCSV)
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			ds.Products = res.Rows
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return ds, nil
	})
}

func readCSVFile[T any](ctx context.Context, path string, read func(context.Context, io.Reader) (loader.CSVResult[T], error)) (loader.CSVResult[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return loader.CSVResult[T]{}, err
	}
	defer f.Close()

	res, err := read(ctx, f)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Generated produces a synthetic dataset from the configured sizes.
type Generated struct {
	Seed         uint64
	Transactions int
	Customers    int
	Products     int
	Now          func() time.Time
}

func (g *Generated) Name() string { return config.SourceGenerate }

func (g *Generated) Load(ctx context.Context) (*models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return generator.New(g.Seed, now()).All(g.Transactions, g.Customers, g.Products), nil
}

// OrGenerate falls back to the generator when the primary source reports
// ErrNoData, and persists the generated data as a parquet snapshot so the
// next start reads it back.
type OrGenerate struct {
	Primary   Source
	Generator *Generated
	Persist   loader.Files
	Logger    *slog.Logger
}

func (o *OrGenerate) Name() string { return o.Primary.Name() }

func (o *OrGenerate) Load(ctx context.Context) (*models.Dataset, error) {
	ds, err := o.Primary.Load(ctx)
	if err == nil || !errors.Is(err, ErrNoData) {
		return ds, err
	}

	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("no data found, generating synthetic dataset",
		"transactions", o.Generator.Transactions,
		"customers", o.Generator.Customers,
		"products", o.Generator.Products)

	ds, err = o.Generator.Load(ctx)
	if err != nil {
		return nil, err
	}
	if o.Persist.Transactions != "" {
		if err := loader.WriteSnapshot(o.Persist, ds); err != nil {
			log.Warn("failed to persist generated snapshot", "error", err)
		}
	}
	return ds, nil
}

// cached returns the cache entry for key when it is newer than every source
// path, otherwise loads and refreshes the entry.
func cached(ctx context.Context, cache *loader.Cache, log *slog.Logger, key string, sources []string,
	load func(context.Context) (*models.Dataset, error)) (*models.Dataset, error) {
	if cache != nil {
		if ds, err := cache.Load(key, sources...); err == nil {
			log.Info("loaded from cache", "key", key, "transactions", len(ds.Transactions))
			return ds, nil
		} else if !errors.Is(err, loader.ErrCacheMiss) {
			log.Warn("ignoring unreadable cache", "key", key, "error", err)
		}
	}

	ds, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(key, ds); err != nil {
			log.Warn("failed to save cache", "key", key, "error", err)
		}
	}
	return ds, nil
}
