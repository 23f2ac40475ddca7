package loader

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	"ecommerce-analytics/internal/models"
)

const cacheVersion = "v2"

// ErrCacheMiss is returned when no usable cache entry exists.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores decoded datasets as snappy-compressed gob files so restarts
// skip parquet and CSV decoding.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) filename(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.gob.sz", safe, cacheVersion))
}

func (c *Cache) Save(key string, ds *models.Dataset) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	tmp := c.filename(key) + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	zw := snappy.NewBufferedWriter(file)
	if err := gob.NewEncoder(zw).Encode(ds); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := zw.Close(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.filename(key))
}

// Load returns the cached dataset for key when the entry was written after
// every one of sources was last modified.
func (c *Cache) Load(key string, sources ...string) (*models.Dataset, error) {
	name := c.filename(key)
	info, err := os.Stat(name)
	if err != nil {
		return nil, ErrCacheMiss
	}
	for _, src := range sources {
		si, err := os.Stat(src)
		if err != nil || !si.ModTime().Before(info.ModTime()) {
			return nil, ErrCacheMiss
		}
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, ErrCacheMiss
	}
	defer file.Close()

	var ds models.Dataset
	if err := gob.NewDecoder(snappy.NewReader(file)).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return &ds, nil
}

func (c *Cache) Invalidate(key string) error {
	err := os.Remove(c.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
