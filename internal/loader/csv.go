package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"ecommerce-analytics/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// RetailRow is one line of the UCI Online Retail export.
type RetailRow struct {
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  string
	Country     string
}

var retailColumns = []column[RetailRow]{
	strCol("InvoiceNo", func(r *RetailRow) *string { return &r.InvoiceNo }),
	strCol("StockCode", func(r *RetailRow) *string { return &r.StockCode }),
	strCol("Description", func(r *RetailRow) *string { return &r.Description }),
	intCol("Quantity", func(r *RetailRow) *int { return &r.Quantity }),
	timeCol("InvoiceDate", func(r *RetailRow) *time.Time { return &r.InvoiceDate }),
	floatCol("UnitPrice", func(r *RetailRow) *float64 { return &r.UnitPrice }),
	strCol("CustomerID", func(r *RetailRow) *string { return &r.CustomerID }),
	strCol("Country", func(r *RetailRow) *string { return &r.Country }),
}

// CSVResult carries parsed rows and the number of lines that failed to parse.
type CSVResult[T any] struct {
	Rows    []T
	Skipped int
}

func ReadTransactionsCSV(ctx context.Context, r io.Reader) (CSVResult[models.Transaction], error) {
	return readCSV(ctx, r, transactionColumns)
}

func ReadCustomersCSV(ctx context.Context, r io.Reader) (CSVResult[models.Customer], error) {
	return readCSV(ctx, r, customerColumns)
}

func ReadProductsCSV(ctx context.Context, r io.Reader) (CSVResult[models.Product], error) {
	return readCSV(ctx, r, productColumns)
}

// ReadRetailCSV decodes the ISO-8859-1 Online Retail file.
func ReadRetailCSV(ctx context.Context, r io.Reader) (CSVResult[RetailRow], error) {
	return readCSV(ctx, charmap.ISO8859_1.NewDecoder().Reader(r), retailColumns)
}

func WriteTransactionsCSV(w io.Writer, txs []models.Transaction) error {
	return writeCSV(w, transactionColumns, txs)
}

func WriteCustomersCSV(w io.Writer, cs []models.Customer) error {
	return writeCSV(w, customerColumns, cs)
}

func WriteProductsCSV(w io.Writer, ps []models.Product) error {
	return writeCSV(w, productColumns, ps)
}

// readCSV maps columns by header name, then parses records in batches with
// a bounded worker pool. Rows that fail to parse are skipped and counted.
// The first column in cols is the entity id and must be present.
func readCSV[T any](ctx context.Context, r io.Reader, cols []column[T]) (CSVResult[T], error) {
	var res CSVResult[T]

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, fmt.Errorf("empty file")
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}

	positions := make([]int, len(cols))
	for i, c := range cols {
		positions[i] = headerIndex(header, c.name)
	}
	if positions[0] < 0 {
		return res, fmt.Errorf("missing column %q", cols[0].name)
	}

	batch := make([][]string, 0, batchSize)
	flush := func() error {
		rows, skipped, err := parseBatch(ctx, batch, cols, positions)
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, rows...)
		res.Skipped += skipped
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return res, err
		}
	}

	if len(res.Rows) == 0 {
		return res, fmt.Errorf("no valid records found")
	}
	return res, nil
}

func parseBatch[T any](ctx context.Context, batch [][]string, cols []column[T], positions []int) ([]T, int, error) {
	parsed := make([]T, len(batch))
	valid := make([]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	chunk := (len(batch) + maxWorkers - 1) / maxWorkers
	for start := 0; start < len(batch); start += chunk {
		end := min(start+chunk, len(batch))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				valid[i] = parseRecord(batch[i], cols, positions, &parsed[i]) == nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, len(batch))
	for i := range parsed {
		if valid[i] {
			out = append(out, parsed[i])
		}
	}
	return out, len(batch) - len(out), nil
}

func parseRecord[T any](record []string, cols []column[T], positions []int, dst *T) error {
	if positions[0] >= len(record) || strings.TrimSpace(record[positions[0]]) == "" {
		return fmt.Errorf("missing id")
	}
	for i, c := range cols {
		p := positions[i]
		if p < 0 || p >= len(record) {
			continue
		}
		if err := c.parse(dst, record[p]); err != nil {
			return err
		}
	}
	return nil
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func writeCSV[T any](w io.Writer, cols []column[T], rows []T) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			record[j] = c.format(&rows[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
