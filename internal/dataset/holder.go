package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/singleflight"

	"ecommerce-analytics/internal/models"
)

// Holder serves the current dataset to concurrent readers. A refresh builds
// a new dataset off to the side and swaps the pointer, so readers never see
// a partially loaded value and must not mutate what they get.
type Holder struct {
	src     Source
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	current  *models.Dataset
	loadedAt time.Time
	loads    int

	refreshes singleflight.Group
}

func NewHolder(src Source, timeout time.Duration, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		src:     src,
		timeout: timeout,
		logger:  logger.With("component", "dataset", "source", src.Name()),
		current: &models.Dataset{},
	}
}

// NewStatic wraps an already loaded dataset; Refresh is a no-op reload of
// the same value.
func NewStatic(ds *models.Dataset) *Holder {
	h := NewHolder(static{ds}, 0, nil)
	h.current = ds
	h.loadedAt = ds.LoadedAt
	return h
}

type static struct{ ds *models.Dataset }

func (s static) Load(context.Context) (*models.Dataset, error) { return s.ds, nil }
func (s static) Name() string                                  { return "static" }

// Current returns the published dataset. It is never nil.
func (h *Holder) Current() *models.Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Holder) LoadedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loadedAt
}

// Refresh reloads from the source and publishes the result. Callers that
// arrive while a load is running share its outcome; on failure the previous
// dataset stays in place.
func (h *Holder) Refresh(ctx context.Context) error {
	_, err, shared := h.refreshes.Do("refresh", func() (any, error) {
		return nil, h.load(ctx)
	})
	if shared {
		h.logger.Debug("joined in-flight refresh")
	}
	return err
}

func (h *Holder) load(ctx context.Context) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	ds, err := h.src.Load(ctx)
	if err != nil {
		h.logger.Error("dataset load failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("load %s: %w", h.src.Name(), err)
	}
	if ds.Source == "" {
		ds.Source = h.src.Name()
	}
	now := time.Now()
	ds.LoadedAt = now

	h.mu.Lock()
	h.current = ds
	h.loadedAt = now
	h.loads++
	h.mu.Unlock()

	h.logger.Info("dataset loaded",
		"transactions", len(ds.Transactions),
		"customers", len(ds.Customers),
		"products", len(ds.Products),
		"duration", time.Since(start))
	return nil
}

// Schedule registers a job on s that reloads the dataset every ttl. The
// first run waits a full interval since callers load once at startup.
func (h *Holder) Schedule(s *gocron.Scheduler, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := s.Every(ttl).WaitForSchedule().Tag("dataset-refresh").Do(func() {
		if err := h.Refresh(context.Background()); err != nil {
			h.logger.Warn("scheduled refresh failed, keeping previous dataset", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule dataset refresh: %w", err)
	}
	return nil
}

// Stats reports load metadata for the admin endpoint.
func (h *Holder) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]any{
		"source":    h.current.Source,
		"loaded_at": h.loadedAt,
		"loads":     h.loads,
		"counts":    h.current.Counts(),
	}
}
