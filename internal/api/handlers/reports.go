package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizbooks/bizbooks/internal/api/middleware"
	"github.com/bizbooks/bizbooks/internal/archive"
	"github.com/bizbooks/bizbooks/internal/jobs"
	"github.com/bizbooks/bizbooks/internal/report"
)

// ReportsHandler serves the three report download endpoints. Each
// response is a fully materialized attachment; on failure nothing is
// written, never a truncated file.
type ReportsHandler struct {
	reports   *report.Service
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler. publisher may be nil
// when report archival is disabled.
func NewReportsHandler(reports *report.Service, publisher jobs.Publisher, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports:   reports,
		publisher: publisher,
		log:       log,
	}
}

// CSV handles GET /api/reports/csv
func (h *ReportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.reports.CSV)
}

// Excel handles GET /api/reports/excel
func (h *ReportsHandler) Excel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.reports.Excel)
}

// PDF handles GET /api/reports/pdf
func (h *ReportsHandler) PDF(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.reports.PDF)
}

type renderFunc func(ctx context.Context, filter report.Filter) (*report.File, error)

func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, render renderFunc) {
	query := r.URL.Query()
	filter := report.Filter{
		UserID:    middleware.UserID(r.Context()),
		AccountID: query.Get("accountId"),
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
	}

	file, err := render(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to generate report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	h.enqueueArchive(r.Context(), file)

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}

func (h *ReportsHandler) enqueueArchive(ctx context.Context, file *report.File) {
	if h.publisher == nil {
		return
	}

	job := &jobs.ArchiveReportJob{
		ObjectName:  archive.ObjectName(time.Now().UTC(), file.Name),
		ContentType: file.ContentType,
		Data:        file.Data,
	}
	if err := h.publisher.PublishArchiveReport(ctx, job); err != nil {
		h.log.Warn().Err(err).Str("object", job.ObjectName).Msg("Failed to enqueue report archive job")
	}
}
