package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/services"
	"rentledger-backend/internal/timeutil"
	"rentledger-backend/pkg/utils"
)

type ReceiptHandler struct {
	Service *services.ReceiptService
	Export  *services.ExportService
}

func NewReceiptHandler(service *services.ReceiptService, export *services.ExportService) *ReceiptHandler {
	return &ReceiptHandler{Service: service, Export: export}
}

// ListReceipts handles GET /api/rent-receipts
func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.Service.ListRentReceipts(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipts)
}

// GetReceipt handles GET /api/rent-receipts/{id}
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	receipt, err := h.Service.GetRentReceiptByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipt)
}

// GetReceiptByPayment handles GET /api/rent-payments/{id}/receipt
func (h *ReceiptHandler) GetReceiptByPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["id"]
	receipt, err := h.Service.GetRentReceiptByPaymentID(r.Context(), paymentID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipt)
}

// GenerateReceipt handles POST /api/rent-payments/{id}/receipt
// Regenerating for an already-receipted payment returns the existing receipt.
func (h *ReceiptHandler) GenerateReceipt(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["id"]
	receipt, err := h.Service.GenerateRentReceipt(r.Context(), paymentID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, receipt)
}

// DownloadReceiptPDF handles GET /api/rent-receipts/{id}/pdf
func (h *ReceiptHandler) DownloadReceiptPDF(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	receipt, err := h.Service.GetRentReceiptByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	pdfData, err := h.Export.RenderReceiptPDF(r.Context(), receipt)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", receipt.ReceiptNumber)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdfData)
}

// DownloadReceiptsZip handles GET /api/rent-receipts/bulk-pdf?start=2026-01-01&end=2026-01-31
func (h *ReceiptHandler) DownloadReceiptsZip(w http.ResponseWriter, r *http.Request) {
	start, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("start"), timeutil.IST)
	if err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "start must be in YYYY-MM-DD format")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("end"), timeutil.IST)
	if err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "end must be in YYYY-MM-DD format")
		return
	}

	files, err := h.Export.BulkReceiptPDFs(r.Context(), start, end)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if len(files) == 0 {
		utils.ErrorWithStatus(w, http.StatusNotFound, "No receipts in the requested period")
		return
	}

	zipData, err := h.Export.ZipArchive(files)
	if err != nil {
		utils.Error(w, err)
		return
	}

	filename := fmt.Sprintf("receipts_%s_to_%s.zip", start.Format("2006-01-02"), end.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(zipData)
}
