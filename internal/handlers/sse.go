package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-analytics/internal/errors"
	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/services"
	"ecommerce-analytics/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dashboardSignals are the filter controls the page binds.
type dashboardSignals struct {
	Preset   string `json:"preset"`
	Country  string `json:"country"`
	Category string `json:"category"`
}

// filterFor builds the filter from the page signals when datastar sent
// them, otherwise from plain query parameters. Malformed query parameters
// are returned as an error.
func (h *SSEHandlers) filterFor(r *http.Request) (filter.Filter, error) {
	now := h.analytics.Now()
	if r.Method == http.MethodGet && !r.URL.Query().Has("datastar") {
		q := newQuery(r.URL.Query())
		f := q.filter(now)
		return f, q.err
	}

	var s dashboardSignals
	if err := datastar.ReadSignals(r, &s); err != nil {
		h.logger.Warn("read datastar signals", "error", err)
	}
	f := filter.Preset(s.Preset, now)
	if s.Country != "" {
		f.Countries = []string{s.Country}
	}
	if s.Category != "" {
		f.Categories = []string{s.Category}
	}
	return f, nil
}

// start opens the stream and resolves the filter. A filter error is patched
// into #kpis and the caller gets ok=false.
func (h *SSEHandlers) start(w http.ResponseWriter, r *http.Request) (*datastar.ServerSentEventGenerator, filter.Filter, bool) {
	f, ferr := h.filterFor(r)
	sse := datastar.NewSSE(w, r)
	if ferr == nil {
		return sse, f, true
	}

	message, details := "Invalid filter", ferr.Error()
	var appErr *errors.AppError
	if stderrors.As(ferr, &appErr) {
		message, details = appErr.Message, appErr.Details
	}
	h.logger.Warn("rejected dashboard filter", "path", r.URL.Path, "error", ferr)

	html, err := templates.Render(r.Context(), templates.FilterError(message, details))
	if err != nil {
		h.logger.Error("render filter error", "error", err)
		return sse, f, false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch filter error", "error", err)
	}
	return sse, f, false
}

func (h *SSEHandlers) patchKPIs(sse *datastar.ServerSentEventGenerator, r *http.Request, f filter.Filter) bool {
	html, err := templates.Render(r.Context(), templates.KPICards(h.analytics.KPIs(f)))
	if err != nil {
		h.logger.Error("render kpi cards", "error", err)
		return false
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch kpi cards", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) patchCharts(sse *datastar.ServerSentEventGenerator, f filter.Filter) bool {
	data, err := json.Marshal(map[string]any{"charts": h.analytics.Charts(f)})
	if err != nil {
		h.logger.Error("marshal charts data", "error", err)
		return false
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.Warn("patch charts data", "error", err)
		return false
	}
	return true
}

func (h *SSEHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	if sse, f, ok := h.start(w, r); ok {
		h.patchKPIs(sse, r, f)
	}
}

func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	if sse, f, ok := h.start(w, r); ok {
		h.patchCharts(sse, f)
	}
}

// HandleRefreshAll patches the KPI cards and every chart series for the
// current filter in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse, f, ok := h.start(w, r)
	if !ok || !h.patchKPIs(sse, r, f) {
		return
	}
	h.patchCharts(sse, f)
}
