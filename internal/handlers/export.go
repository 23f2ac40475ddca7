package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"ecommerce-analytics/internal/errors"
	"ecommerce-analytics/internal/export"
	"ecommerce-analytics/internal/models"
	"ecommerce-analytics/internal/observability"
)

func (h *APIHandlers) HandleExportExcel(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "xlsx", export.ContentTypeExcel, export.Excel)
}

func (h *APIHandlers) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "pdf", export.ContentTypePDF, export.PDF)
}

// serveExport renders the whole report into memory first so a rendering
// failure can still be reported as a JSON error.
func (h *APIHandlers) serveExport(w http.ResponseWriter, r *http.Request, ext, contentType string,
	render func(io.Writer, *models.Report) error) {
	q := newQuery(r.URL.Query())
	f := q.filter(h.analytics.Now())
	if err := q.check(nil); err != nil {
		h.fail(w, r, err)
		return
	}

	report := h.analytics.Report(f)
	var buf bytes.Buffer
	err := observability.Trace(r.Context(), h.logger, "export."+ext, func(context.Context) error {
		return render(&buf, report)
	})
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Export failed"))
		return
	}
	errors.WriteAttachment(w, contentType, export.Filename(report.GeneratedAt, ext), buf.Bytes())
}
