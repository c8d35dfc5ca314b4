package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/internal/timeutil"
	"rentledger-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
	Export  *services.ExportService
}

func NewReportHandler(service *services.ReportService, export *services.ExportService) *ReportHandler {
	return &ReportHandler{Service: service, Export: export}
}

// GenerateReport handles POST /api/reports/generate
// The archived CSV/PDF copies are written in the background.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.Service.GenerateRentCollectionReport(r.Context(), req.StartDate, req.EndDate, req.ReportType)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if h.Export != nil {
		snapshot := *report
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := h.Export.ArchiveReportArtifacts(ctx, &snapshot); err != nil {
				log.Printf("[Reports] Archiving report %s failed: %v", snapshot.ID, err)
			}
		}()
	}

	utils.JSON(w, http.StatusCreated, report)
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Service.ListCollectionReports(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, reports)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := h.Service.GetCollectionReportByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// GetReportCSV handles GET /api/reports/{id}/csv
func (h *ReportHandler) GetReportCSV(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := h.Service.GetCollectionReportByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	csvData, err := h.Export.ReportCSV(report)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("collection_report_%s_%s.csv", report.ReportType, report.Period.StartDate.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(csvData)
}

// GetReportPDF handles GET /api/reports/{id}/pdf
func (h *ReportHandler) GetReportPDF(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	report, err := h.Service.GetCollectionReportByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	pdfData, err := h.Export.RenderReportPDF(report)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("collection_report_%s_%s.pdf", report.ReportType, report.Period.StartDate.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdfData)
}

// GetAnalytics handles GET /api/reports/analytics?start=2026-01-01&end=2026-01-31
// Defaults to the current month when no window is given.
func (h *ReportHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	now := timeutil.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, timeutil.IST)
	end := start.AddDate(0, 1, -1)

	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, timeutil.IST)
		if err != nil {
			utils.ErrorWithStatus(w, http.StatusBadRequest, "start must be in YYYY-MM-DD format")
			return
		}
		start = parsed
	}
	if e := r.URL.Query().Get("end"); e != "" {
		parsed, err := time.ParseInLocation("2006-01-02", e, timeutil.IST)
		if err != nil {
			utils.ErrorWithStatus(w, http.StatusBadRequest, "end must be in YYYY-MM-DD format")
			return
		}
		end = parsed
	}

	analytics, err := h.Service.GetRentAnalytics(r.Context(), start, end)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, analytics)
}
