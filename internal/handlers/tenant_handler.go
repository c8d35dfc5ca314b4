package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/internal/timeutil"
	"rentledger-backend/pkg/utils"
)

type TenantHandler struct {
	Directory *services.DirectoryService
	Deposits  *services.DepositService
}

func NewTenantHandler(directory *services.DirectoryService, deposits *services.DepositService) *TenantHandler {
	return &TenantHandler{Directory: directory, Deposits: deposits}
}

// CreateTenant registers a tenant and their rental agreement
// POST /api/tenants
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tenant, err := h.Directory.CreateTenant(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, tenant)
}

// ListTenants returns tenants, optionally only the active ones
// GET /api/tenants?active=true
func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		tenants, err := h.Directory.GetActiveTenants(r.Context())
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, tenants)
		return
	}

	tenants, err := h.Directory.GetTenants(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenants)
}

// GetTenant returns one tenant
// GET /api/tenants/{id}
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tenant, err := h.Directory.GetTenantByID(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenant)
}

// GetTenantByPhone looks a tenant up by phone number
// GET /api/tenants/by-phone/{phone}
func (h *TenantHandler) GetTenantByPhone(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]
	tenant, err := h.Directory.GetTenantByPhone(r.Context(), phone)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenant)
}

// UpdateTenant patches a tenant
// PUT /api/tenants/{id}
func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req models.UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tenant, err := h.Directory.UpdateTenant(r.Context(), id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenant)
}

// DeleteTenant removes a tenant with no payment history
// DELETE /api/tenants/{id}
func (h *TenantHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Directory.DeleteTenant(r.Context(), id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, http.StatusOK, "Tenant deleted")
}

// MoveIn activates a tenant, occupies their unit and opens the deposit
// POST /api/tenants/{id}/move-in
func (h *TenantHandler) MoveIn(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	date, ok := h.decodeDate(w, r, "move_in_date")
	if !ok {
		return
	}

	tenant, err := h.Deposits.ProcessTenantMoveIn(r.Context(), id, date)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenant)
}

// MoveOut deactivates a tenant and frees their unit
// POST /api/tenants/{id}/move-out
func (h *TenantHandler) MoveOut(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	date, ok := h.decodeDate(w, r, "move_out_date")
	if !ok {
		return
	}

	tenant, err := h.Deposits.ProcessTenantMoveOut(r.Context(), id, date)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tenant)
}

// decodeDate reads a single optional YYYY-MM-DD field from the body,
// defaulting to today. A missing body is fine, a malformed date is not.
func (h *TenantHandler) decodeDate(w http.ResponseWriter, r *http.Request, field string) (time.Time, bool) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return time.Time{}, false
	}

	raw := body[field]
	if raw == "" {
		return timeutil.Now(), true
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, timeutil.IST)
	if err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, field+" must be in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}
