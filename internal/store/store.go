// Package store persists the dataset in a relational database through gorm.
// Every filter predicate reaches SQL as bound parameters built by
// filter.Filter.Where.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"golang.org/x/sync/errgroup"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/models"
)

const SourceName = "database"

type Store struct {
	db        *gorm.DB
	batchSize int
	logger    *slog.Logger
}

// Open connects to postgres or mysql according to cfg and applies the pool
// settings.
func Open(cfg config.DatabaseConfig, log *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("database URL is not set")
		}
		dialector = postgres.Open(cfg.URL)
	case "mysql":
		dsn := cfg.URL
		if dsn == "" {
			dsn = MySQLDSN(cfg)
		}
		dialector = gormmysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return New(db, cfg.SeedBatchSize, log), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, batchSize int, log *slog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, batchSize: batchSize, logger: log.With("component", "store")}
}

// MySQLDSN builds a go-sql-driver DSN from the discrete connection fields.
func MySQLDSN(cfg config.DatabaseConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN()
}

func (s *Store) Name() string { return SourceName }

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.Product{}, &models.Customer{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedDataset inserts products, customers and transactions in one database
// transaction, in batches of the configured size.
func (s *Store) SeedDataset(ctx context.Context, ds *models.Dataset) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ds.Products) > 0 {
			if err := tx.CreateInBatches(&ds.Products, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert products: %w", err)
			}
		}
		if len(ds.Customers) > 0 {
			if err := tx.CreateInBatches(&ds.Customers, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert customers: %w", err)
			}
		}
		if len(ds.Transactions) > 0 {
			if err := tx.CreateInBatches(&ds.Transactions, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert transactions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("dataset seeded", "counts", ds.Counts(), "duration", time.Since(start))
	return nil
}

// Load returns every row. It lets the store act as a dataset source.
func (s *Store) Load(ctx context.Context) (*models.Dataset, error) {
	return s.LoadDataset(ctx, filter.Filter{})
}

// LoadDataset reads transactions matching f together with the full customer
// and product catalogs. The three queries run concurrently.
func (s *Store) LoadDataset(ctx context.Context, f filter.Filter) (*models.Dataset, error) {
	ds := &models.Dataset{Source: SourceName}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := s.db.WithContext(gctx).Model(&models.Transaction{})
		if clause, args := f.Where(); clause != "" {
			q = q.Where(clause, args...)
		}
		if err := q.Order("date").Find(&ds.Transactions).Error; err != nil {
			return fmt.Errorf("query transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.WithContext(gctx).Find(&ds.Customers).Error; err != nil {
			return fmt.Errorf("query customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.WithContext(gctx).Find(&ds.Products).Error; err != nil {
			return fmt.Errorf("query products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Counts reports the row count of each table.
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 3)
	for name, model := range map[string]any{
		"transactions": &models.Transaction{},
		"customers":    &models.Customer{},
		"products":     &models.Product{},
	} {
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
