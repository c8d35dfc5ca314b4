package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"rentledger-backend/internal/middleware"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/pkg/utils"
)

// PortalHandler is the tenant-facing surface. Every data route is scoped to
// the tenant identified by the portal token, never by request parameters.
type PortalHandler struct {
	Portal   *services.TenantPortalService
	Payments *services.PaymentService
	Razorpay *services.RazorpayService
	Export   *services.ExportService
}

func NewPortalHandler(portal *services.TenantPortalService, payments *services.PaymentService, razorpay *services.RazorpayService, export *services.ExportService) *PortalHandler {
	return &PortalHandler{Portal: portal, Payments: payments, Razorpay: razorpay, Export: export}
}

// getIPAddress extracts the real IP address from the request
func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies/load balancers)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// RequestOTP sends a login code to a registered tenant phone
// POST /portal/auth/request-otp
func (h *PortalHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.PortalLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Portal.RequestLoginOTP(r.Context(), req.Phone, getIPAddress(r)); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Message(w, http.StatusOK, "Login code sent")
}

// VerifyOTP exchanges a login code for a portal token
// POST /portal/auth/verify-otp
func (h *PortalHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.PortalVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Portal.VerifyLoginOTP(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Dashboard returns the tenant's payment summary
// GET /portal/dashboard
func (h *PortalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	dashboard, err := h.Portal.GetDashboard(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, dashboard)
}

// MyPayments returns the tenant's own payment history
// GET /portal/payments
func (h *PortalHandler) MyPayments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	payments, err := h.Portal.ListOwnPayments(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// MyReceipts returns the tenant's own receipts
// GET /portal/receipts
func (h *PortalHandler) MyReceipts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	receipts, err := h.Portal.ListOwnReceipts(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, receipts)
}

// MyReceiptPDF downloads one of the tenant's own receipts as PDF
// GET /portal/receipts/{id}/pdf
func (h *PortalHandler) MyReceiptPDF(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	receipt, err := h.Portal.GetOwnReceipt(r.Context(), tenantID, mux.Vars(r)["id"])
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

// CheckoutStatus tells the portal whether online payment is available
// GET /portal/checkout/status
func (h *PortalHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Razorpay.GetPaymentStatus(r.Context()))
}

// CreateCheckoutOrder opens a Razorpay order for one of the tenant's own
// rent payments
// POST /portal/checkout/order
func (h *PortalHandler) CreateCheckoutOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.Payments.GetRentPayment(r.Context(), req.RentPaymentID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if payment.TenantID != tenantID {
		utils.ErrorWithStatus(w, http.StatusNotFound, "Payment not found")
		return
	}

	order, err := h.Razorpay.CreateOrder(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}

// VerifyCheckout confirms a completed checkout and settles the payment
// POST /portal/checkout/verify
func (h *PortalHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.Razorpay.VerifyPayment(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if tx.TenantID != tenantID {
		log.Printf("[Portal] Tenant %s verified order %s belonging to tenant %s", tenantID, tx.RazorpayOrderID, tx.TenantID)
		utils.ErrorWithStatus(w, http.StatusNotFound, "Order not found")
		return
	}
	utils.JSON(w, http.StatusOK, tx)
}

// MyTransactions returns the tenant's own checkout attempts
// GET /portal/checkout/transactions
func (h *PortalHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	txns, err := h.Razorpay.GetTransactionHistory(r.Context(), tenantID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, txns)
}
