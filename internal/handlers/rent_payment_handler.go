package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/internal/timeutil"
	"rentledger-backend/pkg/utils"
)

type RentPaymentHandler struct {
	Service *services.PaymentService
}

func NewRentPaymentHandler(service *services.PaymentService) *RentPaymentHandler {
	return &RentPaymentHandler{Service: service}
}

// CreatePayment records a new rent obligation
// POST /api/rent-payments
func (h *RentPaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRentPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Service.CreateRentPayment(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, payment)
}

// ListPayments returns payments, optionally filtered by status or tenant
// GET /api/rent-payments?status=&tenant_id=
func (h *RentPaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if tenantID := r.URL.Query().Get("tenant_id"); tenantID != "" {
		payments, err := h.Service.GetPaymentsByTenant(r.Context(), tenantID)
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, payments)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		payments, err := h.Service.GetPaymentsByStatus(r.Context(), models.PaymentStatus(status))
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, payments)
		return
	}

	payments, err := h.Service.ListRentPayments(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// GetPayment returns one payment
// GET /api/rent-payments/{id}
func (h *RentPaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	payment, err := h.Service.GetRentPayment(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// UpdatePayment patches a payment
// PUT /api/rent-payments/{id}
func (h *RentPaymentHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.UpdateRentPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Service.UpdateRentPayment(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// DeletePayment removes a payment and its receipt
// DELETE /api/rent-payments/{id}
func (h *RentPaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Service.DeleteRentPayment(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, http.StatusOK, "Payment deleted")
}

// MarkPaid settles a payment
// POST /api/rent-payments/{id}/mark-paid
func (h *RentPaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Service.MarkAsPaid(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// MarkPartial records a partial payment
// POST /api/rent-payments/{id}/mark-partial
func (h *RentPaymentHandler) MarkPartial(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		AmountPaid float64 `json:"amount_paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Service.MarkAsPartiallyPaid(r.Context(), id, req.AmountPaid)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// GetOverdue returns the currently overdue payments
// GET /api/rent-payments/overdue
func (h *RentPaymentHandler) GetOverdue(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.GetOverduePayments(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// GetUpcoming returns pending payments due within the window
// GET /api/rent-payments/upcoming?days=7
func (h *RentPaymentHandler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			days = n
		}
	}

	payments, err := h.Service.GetUpcomingPayments(r.Context(), days)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// GenerateMonthly creates the month's obligations for active tenants
// POST /api/rent-payments/generate-monthly?month=2026-02
func (h *RentPaymentHandler) GenerateMonthly(w http.ResponseWriter, r *http.Request) {
	target := timeutil.Now()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.ParseInLocation("2006-01", m, timeutil.IST)
		if err != nil {
			utils.ErrorWithStatus(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		target = parsed
	}

	payments, err := h.Service.GenerateMonthlyRentPayments(r.Context(), target.Month(), target.Year())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"generated": len(payments),
		"payments":  payments,
	})
}

// SweepOverdue flips pending payments past their due date to overdue
// POST /api/rent-payments/sweep-overdue
func (h *RentPaymentHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Service.UpdateOverduePayments(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"updated": updated})
}
