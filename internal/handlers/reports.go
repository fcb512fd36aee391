package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/records"
	"github.com/xelth-com/centerhub/internal/report"
)

// adminBusinessReport returns inventory, sales and maintenance statistics.
// ?period=week|month|year|all, ?center= narrows to one center.
func (r *Router) adminBusinessReport(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	stats, err := r.Reports.BusinessReport(req.Context(), q.Get("center"), report.ParsePeriod(q.Get("period")))
	if err != nil {
		r.fail(w, err, "Failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// centerBusinessReport returns the caller's own business figures.
// Admins choose the center with ?centerId=.
func (r *Router) centerBusinessReport(w http.ResponseWriter, req *http.Request) {
	p := principal(req)
	centerID := p.CenterID
	if p.IsAdmin() {
		centerID = req.URL.Query().Get("centerId")
	}
	if centerID == "" {
		r.fail(w, records.ErrForbidden, "")
		return
	}
	stats, err := r.Reports.BusinessReport(req.Context(), centerID, report.ParsePeriod(req.URL.Query().Get("period")))
	if err != nil {
		r.fail(w, err, "Failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// adminExportPDF renders the summary, sessions and activities as a PDF
func (r *Router) adminExportPDF(w http.ResponseWriter, req *http.Request) {
	sessions, activities, err := r.loadRange(req)
	if err != nil {
		r.fail(w, err, "Failed to build report")
		return
	}

	rng := report.ParseTimeRange(req.URL.Query().Get("range"))
	meta := report.Meta{
		ReportID:    uuid.NewString(),
		Title:       "Centers activity report",
		Range:       rng,
		GeneratedAt: r.Reports.Now(),
		Location:    r.Reports.Location(),
	}
	body, err := report.RenderPDF(report.Summarize(sessions, activities), sessions, activities, meta)
	if err != nil {
		r.fail(w, err, "Failed to render PDF")
		return
	}
	sendFile(w, "application/pdf", fmt.Sprintf("centers-report-%s.pdf", rng), body)
}

// adminExportXLSX writes sessions and activities as a workbook
func (r *Router) adminExportXLSX(w http.ResponseWriter, req *http.Request) {
	sessions, activities, err := r.loadRange(req)
	if err != nil {
		r.fail(w, err, "Failed to build report")
		return
	}
	body, err := report.RenderXLSX(sessions, activities, r.Reports.Location())
	if err != nil {
		r.fail(w, err, "Failed to render workbook")
		return
	}
	rng := report.ParseTimeRange(req.URL.Query().Get("range"))
	sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		fmt.Sprintf("centers-report-%s.xlsx", rng), body)
}

func sendFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
