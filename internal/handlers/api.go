package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-analytics/internal/errors"
	"ecommerce-analytics/internal/ml"
	"ecommerce-analytics/internal/observability"
	"ecommerce-analytics/internal/services"
)

const (
	Version = "1.0.0"

	cacheMaxAge = "public, max-age=300"
)

var cacheHeaders = map[string]string{"Cache-Control": cacheMaxAge}

// Reloader is the dataset holder as the admin endpoints see it.
type Reloader interface {
	Refresh(ctx context.Context) error
	Stats() map[string]any
}

type APIHandlers struct {
	analytics *services.Analytics
	data      Reloader
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, data Reloader, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		data:      data,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, classify(err), observability.GetRequestID(r.Context()))
}

// classify maps domain errors onto API errors. Model failures keep their
// cause in the response details.
func classify(err error) error {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, services.ErrInvalidArgument), stderrors.Is(err, ml.ErrInvalidArgument):
		return errors.ValidationWrap(err, "Invalid request parameters").WithDetails(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.CodeServiceUnavail, "Request timed out")
	default:
		return errors.InternalWrap(err, "Analysis failed")
	}
}

// RequireData rejects requests with 503 until a dataset has been loaded.
func (h *APIHandlers) RequireData(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.analytics.Dataset().Empty() {
			h.fail(w, r, errors.ServiceUnavailable("Data not loaded"))
			return
		}
		next(w, r)
	}
}

func (h *APIHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]any{
		"message":   "Global Ecommerce Analytics API",
		"version":   Version,
		"endpoints": map[string]string{
			"kpis":            "/api/kpis",
			"transactions":    "/api/transactions",
			"customers":       "/api/customers",
			"products":        "/api/products",
			"countries":       "/api/analytics/countries",
			"categories":      "/api/analytics/categories",
			"time_series":     "/api/analytics/time-series",
			"top_products":    "/api/analytics/top-products",
			"segments":        "/api/analytics/segments",
			"filters":         "/api/filters",
			"charts":          "/api/charts",
			"export_excel":    "/api/export/excel",
			"export_pdf":      "/api/export/pdf",
			"ml_forecast":     "/api/ml/forecast",
			"ml_clustering":   "/api/ml/clustering/customers",
			"ml_churn":        "/api/ml/churn/at-risk",
			"ml_recommend":    "/api/ml/recommendations/{product_id}",
			"ml_demand":       "/api/ml/demand-forecast",
			"ml_anomalies":    "/api/ml/anomalies",
			"health":          "/health",
			"admin_stats":     "/admin/stats",
			"admin_refresh":   "/admin/refresh",
			"sse_refresh_all": "/sse/refresh-all",
			"sse_kpis":        "/sse/kpis",
			"sse_charts":      "/sse/charts",
			"dashboard":       "/",
		},
	})
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	if err := q.check(nil); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.KPIs(f), cacheHeaders)
}

func (h *APIHandlers) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	p := transactionParams{Limit: q.integer("limit", 100), Offset: q.integer("offset", 0)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	page := h.analytics.Transactions(f, services.Pagination{Limit: p.Limit, Offset: p.Offset})
	errors.WriteSuccess(w, page)
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := customerParams{
		Limit:   q.integer("limit", 100),
		Offset:  q.integer("offset", 0),
		Country: q.str("country", ""),
		Segment: q.str("rfm_segment", ""),
		MinLTV:  q.optFloat("min_ltv"),
	}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	page := h.analytics.Customers(
		services.CustomerQuery{Country: p.Country, Segment: p.Segment, MinLTV: p.MinLTV},
		services.Pagination{Limit: p.Limit, Offset: p.Offset},
	)
	errors.WriteSuccess(w, page)
}

func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := productParams{
		Limit:     q.integer("limit", 100),
		Offset:    q.integer("offset", 0),
		Category:  q.str("category", ""),
		MinRating: q.optFloat("min_rating"),
	}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	page := h.analytics.Products(
		services.ProductQuery{Category: p.Category, MinRating: p.MinRating},
		services.Pagination{Limit: p.Limit, Offset: p.Offset},
	)
	errors.WriteSuccess(w, page)
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	if err := q.check(nil); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Countries(f), cacheHeaders)
}

func (h *APIHandlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	if err := q.check(nil); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Categories(f), cacheHeaders)
}

func (h *APIHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	p := timeSeriesParams{Granularity: q.str("granularity", services.GranularityDay)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	points, err := h.analytics.TimeSeries(p.Granularity, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"granularity": p.Granularity,
		"points":      points,
	}, cacheHeaders)
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	p := topProductParams{Limit: q.integer("limit", 20), Metric: q.str("metric", services.MetricRevenue)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	products, err := h.analytics.TopProducts(p.Metric, p.Limit, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"metric":   p.Metric,
		"products": products,
	}, cacheHeaders)
}

func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Segments(), cacheHeaders)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.FilterOptions(), cacheHeaders)
}

func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	if err := q.check(nil); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, h.analytics.Charts(f), cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ds := h.analytics.Dataset()
	errors.WriteSuccess(w, map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"version":     Version,
		"data_loaded": !ds.Empty(),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]any{
		"dataset": h.analytics.Stats(),
		"holder":  h.data.Stats(),
	})
}

// HandleRefresh reloads the dataset synchronously. A failed reload keeps
// serving the previous dataset and reports 503.
func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	err := observability.Trace(r.Context(), h.logger, "dataset.refresh", h.data.Refresh)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, errors.CodeServiceUnavail, "Dataset refresh failed").WithDetails(err.Error()))
		return
	}
	errors.WriteSuccess(w, h.data.Stats())
}
