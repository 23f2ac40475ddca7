package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"golang.org/x/sync/errgroup"

	"ecommerce-analytics/internal/models"
)

const rowGroupSize = 64 * 1024

// Files names the three snapshot files of one dataset.
type Files struct {
	Transactions string
	Customers    string
	Products     string
	Unified      bool
}

// SnapshotFiles returns the snapshot file set under dir.
func SnapshotFiles(dir string, unified bool) Files {
	suffix := ""
	if unified {
		suffix = "_unified"
	}
	return Files{
		Transactions: filepath.Join(dir, "transactions"+suffix+".parquet"),
		Customers:    filepath.Join(dir, "customers"+suffix+".parquet"),
		Products:     filepath.Join(dir, "products"+suffix+".parquet"),
		Unified:      unified,
	}
}

// Exist reports whether all three files are present.
func (f Files) Exist() bool {
	for _, p := range f.Paths() {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Paths lists the files in transactions, customers, products order.
func (f Files) Paths() []string {
	return []string{f.Transactions, f.Customers, f.Products}
}

// LocateSnapshot picks the unified file set when preferred and present,
// otherwise the plain set. ok is false when neither is complete.
func LocateSnapshot(dir string, preferUnified bool) (Files, bool) {
	if preferUnified {
		if f := SnapshotFiles(dir, true); f.Exist() {
			return f, true
		}
	}
	f := SnapshotFiles(dir, false)
	return f, f.Exist()
}

// ReadSnapshot loads the three parquet files concurrently.
func ReadSnapshot(ctx context.Context, files Files) (*models.Dataset, error) {
	ds := &models.Dataset{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds.Transactions, err = readParquetFile(gctx, files.Transactions, transactionColumns)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Customers, err = readParquetFile(gctx, files.Customers, customerColumns)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Products, err = readParquetFile(gctx, files.Products, productColumns)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// WriteSnapshot writes ds as three snappy-compressed parquet files.
func WriteSnapshot(files Files, ds *models.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(files.Transactions), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := writeParquetFile(files.Transactions, transactionColumns, ds.Transactions); err != nil {
		return err
	}
	if err := writeParquetFile(files.Customers, customerColumns, ds.Customers); err != nil {
		return err
	}
	return writeParquetFile(files.Products, productColumns, ds.Products)
}

func readParquetFile[T any](ctx context.Context, path string, cols []column[T]) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readParquet(ctx, f, cols)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func writeParquetFile[T any](path string, cols []column[T], rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeParquet(f, cols, rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readParquet[T any](ctx context.Context, r parquet.ReaderAtSeeker, cols []column[T]) ([]T, error) {
	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	if len(tbl.Schema().FieldIndices(cols[0].name)) == 0 {
		return nil, fmt.Errorf("missing column %q", cols[0].name)
	}

	out := make([]T, tbl.NumRows())
	for _, c := range cols {
		idx := tbl.Schema().FieldIndices(c.name)
		if len(idx) == 0 {
			continue
		}
		row := 0
		for _, chunk := range tbl.Column(idx[0]).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if err := c.setFrom(chunk, i, &out[row]); err != nil {
					return nil, fmt.Errorf("row %d: %w", row, err)
				}
				row++
			}
		}
	}
	return out, nil
}

// writeParquet encodes rows in row groups of rowGroupSize. The arrow schema
// is stored in the file metadata so timestamps round-trip with their zone.
func writeParquet[T any](w io.Writer, cols []column[T], rows []T) error {
	schema := schemaOf(cols)
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	// The parquet writer closes sinks that implement io.Closer; callers own w.
	fw, err := pqarrow.NewFileWriter(schema, struct{ io.Writer }{w}, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	write := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		return fw.Write(rec)
	}

	for i := range rows {
		for j, c := range cols {
			c.appendTo(b.Field(j), &rows[i])
		}
		if (i+1)%rowGroupSize == 0 {
			if err := write(); err != nil {
				fw.Close()
				return err
			}
		}
	}
	if len(rows)%rowGroupSize != 0 || len(rows) == 0 {
		if err := write(); err != nil {
			fw.Close()
			return err
		}
	}
	return fw.Close()
}
