package handlers

import (
	"context"
	"net/http"

	"ecommerce-analytics/internal/errors"
	"ecommerce-analytics/internal/ml"
	"ecommerce-analytics/internal/observability"
)

// Every model endpoint retrains on the dataset current at request time.

func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := forecastParams{DaysAhead: q.integer("days_ahead", 90), Metric: q.str("metric", ml.MetricRevenue)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	var fc *ml.Forecast
	err := observability.Trace(r.Context(), h.logger, "ml.forecast", func(context.Context) error {
		var err error
		fc, err = ml.ForecastDaily(h.analytics.Dataset().Transactions, p.DaysAhead, p.Metric)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, fc)
}

func (h *APIHandlers) HandleClustering(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := clusterParams{NClusters: q.integer("n_clusters", 5)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	var res *ml.Clustering
	err := observability.Trace(r.Context(), h.logger, "ml.clustering", func(context.Context) error {
		var err error
		res, err = ml.ClusterCustomers(h.analytics.Dataset().Customers, p.NClusters)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, res)
}

func (h *APIHandlers) HandleChurnAtRisk(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := churnParams{Threshold: q.number("threshold", 0.7), Limit: q.integer("limit", 100)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, ml.AtRisk(h.analytics.Dataset().Customers, p.Threshold, p.Limit))
}

// HandleRecommendations answers 200 with an empty list and a message when
// nobody bought the product.
func (h *APIHandlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := recommendParams{ProductID: r.PathValue("product_id"), TopN: q.integer("top_n", 10)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, ml.Recommend(h.analytics.Dataset().Transactions, p.ProductID, p.TopN))
}

func (h *APIHandlers) HandleDemandForecast(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := demandParams{TopN: q.integer("top_n", 50)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}
	ds := h.analytics.Dataset()
	errors.WriteSuccess(w, ml.ForecastDemand(ds.Transactions, ds.Products, p.TopN, h.analytics.Now()))
}

func (h *APIHandlers) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r.URL.Query())
	p := anomalyParams{Contamination: q.number("contamination", 0.05), DaysBack: q.integer("days_back", 90)}
	if err := q.check(&p); err != nil {
		h.fail(w, r, err)
		return
	}

	var rep *ml.AnomalyReport
	err := observability.Trace(r.Context(), h.logger, "ml.anomalies", func(context.Context) error {
		var err error
		rep, err = ml.DetectAnomalies(h.analytics.Dataset().Transactions, p.Contamination, p.DaysBack, h.analytics.Now())
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, rep)
}
