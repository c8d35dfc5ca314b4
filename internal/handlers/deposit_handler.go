package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/internal/timeutil"
	"rentledger-backend/pkg/utils"
)

type DepositHandler struct {
	Service *services.DepositService
}

func NewDepositHandler(service *services.DepositService) *DepositHandler {
	return &DepositHandler{Service: service}
}

// RecordDeposit registers a security deposit for a tenant
// POST /api/security-deposits
func (h *DepositHandler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID   string  `json:"tenant_id"`
		PropertyID string  `json:"property_id"`
		Amount     float64 `json:"amount"`
		PaidDate   string  `json:"paid_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	paidDate := timeutil.Now()
	if req.PaidDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.PaidDate, timeutil.IST)
		if err != nil {
			utils.ErrorWithStatus(w, http.StatusBadRequest, "paid_date must be in YYYY-MM-DD format")
			return
		}
		paidDate = parsed
	}

	deposit, err := h.Service.RecordSecurityDeposit(r.Context(), req.TenantID, req.PropertyID, req.Amount, paidDate)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, deposit)
}

// ListDeposits returns all security deposits
// GET /api/security-deposits
func (h *DepositHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.Service.ListSecurityDeposits(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposits)
}

// GetDeposit returns one deposit
// GET /api/security-deposits/{id}
func (h *DepositHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	deposit, err := h.Service.GetSecurityDepositByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposit)
}

// GetDepositByTenant returns the deposit held for a tenant
// GET /api/tenants/{id}/security-deposit
func (h *DepositHandler) GetDepositByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["id"]
	deposit, err := h.Service.GetSecurityDepositByTenant(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposit)
}

// AddDeduction records a deduction against a tenant's deposit
// POST /api/tenants/{id}/security-deposit/deductions
func (h *DepositHandler) AddDeduction(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["id"]
	var req models.AddDeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := h.Service.AddSecurityDepositDeduction(r.Context(), tenantID, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposit)
}

// RefundDeposit settles a tenant's deposit back to them
// POST /api/tenants/{id}/security-deposit/refund
func (h *DepositHandler) RefundDeposit(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["id"]
	var req models.RefundDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := h.Service.RefundSecurityDeposit(r.Context(), tenantID, req.RefundAmount, req.Notes)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposit)
}

// ForfeitDeposit marks a tenant's deposit as kept by the landlord
// POST /api/tenants/{id}/security-deposit/forfeit
func (h *DepositHandler) ForfeitDeposit(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["id"]
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := h.Service.ForfeitSecurityDeposit(r.Context(), tenantID, req.Reason)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, deposit)
}
