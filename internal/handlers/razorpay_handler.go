package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/pkg/utils"
)

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// GetStatus returns whether online checkout is enabled and the public key
// GET /api/checkout/status
func (h *RazorpayHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Service.GetPaymentStatus(r.Context()))
}

// CreateOrder opens a Razorpay order for a rent payment
// POST /api/checkout/order
func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.Service.CreateOrder(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}

// VerifyPayment checks the checkout signature and settles the rent payment
// POST /api/checkout/verify
func (h *RazorpayHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.Service.VerifyPayment(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, tx)
}

// Webhook receives Razorpay server-to-server events. Always answers 200 so
// Razorpay does not retry events we have already rejected or logged.
// POST /webhooks/razorpay
func (h *RazorpayHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Razorpay] Webhook body read failed: %v", err)
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(r.Context(), body, signature) {
		log.Printf("[Razorpay] Webhook signature mismatch, event dropped")
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Razorpay] Webhook payload parse failed: %v", err)
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	event, _ := payload["event"].(string)
	if err := h.Service.ProcessWebhook(r.Context(), event, payload); err != nil {
		log.Printf("[Razorpay] Webhook %s processing failed: %v", event, err)
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTransactions returns checkout attempts, optionally for one tenant
// GET /api/checkout/transactions?tenant_id=
func (h *RazorpayHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if tenantID := r.URL.Query().Get("tenant_id"); tenantID != "" {
		txns, err := h.Service.GetTransactionHistory(r.Context(), tenantID)
		if err != nil {
			utils.Error(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, txns)
		return
	}

	txns, err := h.Service.GetAllTransactions(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, txns)
}

// Reconcile re-settles rent payments that have a successful checkout but
// were never marked paid, usually after a missed webhook
// POST /api/checkout/reconcile
func (h *RazorpayHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	reconciled, err := h.Service.ReconcilePayments(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"reconciled": reconciled})
}
