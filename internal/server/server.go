package server

import (
	"log/slog"
	"net/http"

	"ecommerce-analytics/internal/handlers"
	"ecommerce-analytics/internal/middleware"
	"ecommerce-analytics/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
	adminToken  string
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer registers every dashboard route. adminToken guards the operator
// refresh endpoint; empty disables it.
func NewServer(analytics *services.Analytics, data handlers.Reloader, adminToken string, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		adminToken:  adminToken,
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, data, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	api := s.apiHandlers
	data := api.RequireData

	// Dashboard and operations
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", api.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", api.HandleStats)
	s.mux.Handle("POST /admin/refresh", middleware.AdminToken(s.adminToken, s.logger)(http.HandlerFunc(api.HandleRefresh)))

	// REST API endpoints
	s.mux.HandleFunc("GET /api", api.HandleIndex)
	s.mux.HandleFunc("GET /api/kpis", data(api.HandleKPIs))
	s.mux.HandleFunc("GET /api/transactions", data(api.HandleTransactions))
	s.mux.HandleFunc("GET /api/customers", data(api.HandleCustomers))
	s.mux.HandleFunc("GET /api/products", data(api.HandleProducts))
	s.mux.HandleFunc("GET /api/filters", data(api.HandleFilters))
	s.mux.HandleFunc("GET /api/charts", data(api.HandleCharts))
	s.mux.HandleFunc("GET /api/analytics/countries", data(api.HandleCountries))
	s.mux.HandleFunc("GET /api/analytics/categories", data(api.HandleCategories))
	s.mux.HandleFunc("GET /api/analytics/time-series", data(api.HandleTimeSeries))
	s.mux.HandleFunc("GET /api/analytics/top-products", data(api.HandleTopProducts))
	s.mux.HandleFunc("GET /api/analytics/segments", data(api.HandleSegments))

	// Exports
	s.mux.HandleFunc("GET /api/export/excel", data(api.HandleExportExcel))
	s.mux.HandleFunc("GET /api/export/pdf", data(api.HandleExportPDF))

	// Models, retrained per request
	s.mux.HandleFunc("POST /api/ml/forecast", data(api.HandleForecast))
	s.mux.HandleFunc("GET /api/ml/clustering/customers", data(api.HandleClustering))
	s.mux.HandleFunc("GET /api/ml/churn/at-risk", data(api.HandleChurnAtRisk))
	s.mux.HandleFunc("GET /api/ml/recommendations/{product_id}", data(api.HandleRecommendations))
	s.mux.HandleFunc("GET /api/ml/demand-forecast", data(api.HandleDemandForecast))
	s.mux.HandleFunc("GET /api/ml/anomalies", data(api.HandleAnomalies))

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/kpis", s.sseHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /sse/charts", s.sseHandlers.HandleCharts)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
