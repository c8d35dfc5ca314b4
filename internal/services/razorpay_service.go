package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/config"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"

	"github.com/google/uuid"
)

// RazorpayService runs the online checkout flow: order creation for an
// outstanding ledger obligation, signature verification, webhook processing
// and a reconcile pass for payments that succeeded at Razorpay but never
// reached the ledger.
type RazorpayService struct {
	Store    *repositories.Store
	Payments *PaymentService

	cfg   *config.Config
	nowFn func() time.Time
}

func NewRazorpayService(store *repositories.Store, payments *PaymentService, cfg *config.Config) *RazorpayService {
	return &RazorpayService{
		Store:    store,
		Payments: payments,
		cfg:      cfg,
		nowFn:    timeutil.Now,
	}
}

// getCredentials returns the Razorpay credentials, settings first with env
// fallback so the operator can rotate keys without a redeploy
func (s *RazorpayService) getCredentials(ctx context.Context) (keyID, keySecret, webhookSecret string) {
	if setting, err := s.Store.Settings.Get(ctx, models.SettingRazorpayKeyID); err == nil && setting.SettingValue != "" {
		keyID = setting.SettingValue
	}
	if setting, err := s.Store.Settings.Get(ctx, models.SettingRazorpayKeySecret); err == nil && setting.SettingValue != "" {
		keySecret = setting.SettingValue
	}
	if setting, err := s.Store.Settings.Get(ctx, models.SettingRazorpayWebhookSecret); err == nil && setting.SettingValue != "" {
		webhookSecret = setting.SettingValue
	}

	if keyID == "" {
		keyID = s.cfg.Razorpay.KeyID
	}
	if keySecret == "" {
		keySecret = s.cfg.Razorpay.KeySecret
	}
	if webhookSecret == "" {
		webhookSecret = s.cfg.Razorpay.WebhookSecret
	}
	return keyID, keySecret, webhookSecret
}

func (s *RazorpayService) getClient(ctx context.Context) *razorpay.Client {
	keyID, keySecret, _ := s.getCredentials(ctx)
	if keyID == "" || keySecret == "" {
		return nil
	}
	return razorpay.NewClient(keyID, keySecret)
}

func (s *RazorpayService) getKeyID(ctx context.Context) string {
	keyID, _, _ := s.getCredentials(ctx)
	return keyID
}

// IsEnabled checks the operator toggle. Credentials are only checked when a
// checkout is actually created.
func (s *RazorpayService) IsEnabled(ctx context.Context) bool {
	setting, err := s.Store.Settings.Get(ctx, models.SettingOnlinePaymentEnabled)
	if err != nil {
		return false
	}
	return setting.SettingValue == "true"
}

// GetFeePercent returns the configured convenience fee percentage
func (s *RazorpayService) GetFeePercent(ctx context.Context) float64 {
	setting, err := s.Store.Settings.Get(ctx, models.SettingOnlinePaymentFeePercent)
	if err != nil {
		return 2.5
	}
	fee, err := strconv.ParseFloat(setting.SettingValue, 64)
	if err != nil {
		return 2.5
	}
	return fee
}

// CalculateFee computes the convenience fee for a given amount
func (s *RazorpayService) CalculateFee(amount, feePercent float64) float64 {
	return roundTo2(amount * feePercent / 100)
}

func paise(rupees float64) int {
	return int(math.Round(rupees * 100))
}

// GetPaymentStatus returns the checkout availability info for the frontend
func (s *RazorpayService) GetPaymentStatus(ctx context.Context) *models.PaymentStatusResponse {
	resp := &models.PaymentStatusResponse{
		Enabled:    s.IsEnabled(ctx),
		FeePercent: s.GetFeePercent(ctx),
	}
	if resp.Enabled {
		resp.KeyID = s.getKeyID(ctx)
	}
	return resp
}

// outstandingAmount is what the tenant still owes on the obligation: the
// derived total, minus anything already collected on a partial settlement.
func outstandingAmount(payment *models.RentPayment) float64 {
	due := payment.DerivedActualAmount()
	if payment.Status == models.PaymentStatusPartial {
		due -= payment.ActualAmountPaid
	}
	if due < 0 {
		return 0
	}
	return due
}

// CreateOrder opens a Razorpay order for a pending, overdue or partial
// payment and records the checkout attempt.
func (s *RazorpayService) CreateOrder(ctx context.Context, req *models.CreateCheckoutRequest) (*models.CreateOrderResponse, error) {
	if !s.IsEnabled(ctx) {
		return nil, apperrors.NewValidation("online_payment", "online payments are currently disabled")
	}
	if req.RentPaymentID == "" {
		return nil, apperrors.NewValidation("rent_payment_id", "rent_payment_id is required")
	}

	payment, err := s.Store.RentPayments.GetByID(ctx, req.RentPaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusPaid {
		return nil, apperrors.NewValidation("rent_payment_id", "payment is already settled")
	}

	tenant, err := s.Store.Tenants.GetByID(ctx, payment.TenantID)
	if err != nil {
		return nil, err
	}

	client := s.getClient(ctx)
	if client == nil {
		return nil, fmt.Errorf("razorpay client not configured")
	}

	amount := outstandingAmount(payment)
	if amount <= 0 {
		return nil, apperrors.NewValidation("rent_payment_id", "nothing outstanding on this payment")
	}
	feePercent := s.GetFeePercent(ctx)
	feeAmount := s.CalculateFee(amount, feePercent)
	totalAmount := amount + feeAmount

	orderData := map[string]interface{}{
		"amount":   paise(totalAmount),
		"currency": "INR",
		"receipt":  fmt.Sprintf("rcpt_%s_%d", payment.ID[:8], s.nowFn().Unix()),
		"notes": map[string]interface{}{
			"tenant_id":       tenant.ID,
			"tenant_phone":    tenant.Phone,
			"rent_payment_id": payment.ID,
		},
	}

	order, err := client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}

	tx := &models.OnlineTransaction{
		ID:              uuid.NewString(),
		RazorpayOrderID: orderID,
		TenantID:        tenant.ID,
		TenantPhone:     tenant.Phone,
		TenantName:      tenant.Name,
		RentPaymentID:   payment.ID,
		Amount:          amount,
		FeeAmount:       feeAmount,
		TotalAmount:     totalAmount,
		Status:          models.OnlineTxStatusPending,
		CreatedAt:       s.nowFn(),
	}
	if err := s.Store.OnlineTxns.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	log.Printf("[Razorpay] Created order %s for payment %s (Rs. %.2f + Rs. %.2f fee)", orderID, payment.ID, amount, feeAmount)
	return &models.CreateOrderResponse{
		OrderID:     orderID,
		Amount:      paise(amount),
		FeeAmount:   paise(feeAmount),
		TotalAmount: paise(totalAmount),
		Currency:    "INR",
		KeyID:       s.getKeyID(ctx),
		TenantName:  tenant.Name,
		TenantPhone: tenant.Phone,
		FeePercent:  feePercent,
	}, nil
}

// VerifyPayment checks the callback signature, captures the payment details
// and settles the ledger obligation. Re-verifying an already successful
// transaction returns it unchanged.
func (s *RazorpayService) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.OnlineTransaction, error) {
	if !s.verifySignature(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.markFailed(ctx, req.RazorpayOrderID, "invalid signature")
		return nil, apperrors.NewValidation("razorpay_signature", "invalid payment signature")
	}

	tx, err := s.Store.OnlineTxns.GetByOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}
	if tx.Status == models.OnlineTxStatusSuccess {
		return tx, nil
	}

	// Pull method/UTR details; verification proceeds on our own signature
	// check even if this lookup fails
	var details map[string]interface{}
	if client := s.getClient(ctx); client != nil {
		details, err = client.Payment.Fetch(req.RazorpayPaymentID, nil, nil)
		if err != nil {
			log.Printf("[Razorpay] Failed to fetch payment details: %v", err)
			details = nil
		}
	}
	applyPaymentDetails(tx, details)

	now := s.nowFn()
	tx.RazorpayPaymentID = req.RazorpayPaymentID
	tx.RazorpaySignature = req.RazorpaySignature
	tx.Status = models.OnlineTxStatusSuccess
	tx.CompletedAt = &now
	if err := s.Store.OnlineTxns.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	metrics.OnlinePaymentsTotal.WithLabelValues("success").Inc()

	if err := s.settleLedger(ctx, tx); err != nil {
		// money was captured; the reconcile pass will retry the ledger write
		log.Printf("[Razorpay] Ledger settlement for order %s failed: %v", tx.RazorpayOrderID, err)
	}
	return tx, nil
}

// applyPaymentDetails copies UTR, method and instrument fields out of a
// Razorpay payment entity
func applyPaymentDetails(tx *models.OnlineTransaction, entity map[string]interface{}) {
	if entity == nil {
		return
	}
	if acquirer, ok := entity["acquirer_data"].(map[string]interface{}); ok {
		if u, ok := acquirer["upi_transaction_id"].(string); ok && u != "" {
			tx.UTRNumber = u
		}
		if u, ok := acquirer["bank_transaction_id"].(string); ok && tx.UTRNumber == "" {
			tx.UTRNumber = u
		}
		if u, ok := acquirer["rrn"].(string); ok && tx.UTRNumber == "" {
			tx.UTRNumber = u
		}
	}
	if m, ok := entity["method"].(string); ok {
		tx.PaymentMethod = m
	}
	if b, ok := entity["bank"].(string); ok {
		tx.Bank = b
	}
	if v, ok := entity["vpa"].(string); ok {
		tx.VPA = v
	}
	if card, ok := entity["card"].(map[string]interface{}); ok {
		if last4, ok := card["last4"].(string); ok {
			tx.CardLast4 = last4
		}
		if network, ok := card["network"].(string); ok {
			tx.CardNetwork = network
		}
	}
}

// ledgerMethod maps Razorpay's method strings onto the ledger's payment
// method enum
func ledgerMethod(razorpayMethod string) models.PaymentMethod {
	switch razorpayMethod {
	case "upi":
		return models.PaymentMethodUPI
	case "card":
		return models.PaymentMethodCard
	default:
		return models.PaymentMethodBankTransfer
	}
}

// settleLedger marks the underlying rent payment paid with the online
// collection details. An already-paid obligation is treated as settled.
func (s *RazorpayService) settleLedger(ctx context.Context, tx *models.OnlineTransaction) error {
	transactionID := tx.UTRNumber
	if transactionID == "" {
		transactionID = tx.RazorpayPaymentID
	}

	paidDate := s.nowFn()
	if tx.CompletedAt != nil {
		paidDate = *tx.CompletedAt
	}
	collected := tx.Amount

	_, err := s.Payments.MarkAsPaid(ctx, tx.RentPaymentID, &models.MarkPaidRequest{
		PaidDate:         &paidDate,
		PaymentMethod:    ledgerMethod(tx.PaymentMethod),
		TransactionID:    transactionID,
		ActualAmountPaid: &collected,
	})
	if apperrors.IsValidation(err) {
		log.Printf("[Razorpay] Payment %s already settled in ledger", tx.RentPaymentID)
		return nil
	}
	return err
}

func (s *RazorpayService) markFailed(ctx context.Context, orderID, reason string) {
	tx, err := s.Store.OnlineTxns.GetByOrderID(ctx, orderID)
	if err != nil {
		return
	}
	if tx.Status == models.OnlineTxStatusSuccess {
		return
	}
	now := s.nowFn()
	tx.Status = models.OnlineTxStatusFailed
	tx.FailureReason = reason
	tx.CompletedAt = &now
	if err := s.Store.OnlineTxns.Update(ctx, tx); err != nil {
		log.Printf("[Razorpay] Failed to mark order %s failed: %v", orderID, err)
		return
	}
	metrics.OnlinePaymentsTotal.WithLabelValues("failed").Inc()
}

func (s *RazorpayService) verifySignature(ctx context.Context, orderID, paymentID, signature string) bool {
	_, keySecret, _ := s.getCredentials(ctx)
	if keySecret == "" {
		return false
	}
	data := orderID + "|" + paymentID
	h := hmac.New(sha256.New, []byte(keySecret))
	h.Write([]byte(data))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook body signature. An unset secret
// skips verification so local setups without webhook config still work.
func (s *RazorpayService) VerifyWebhookSignature(ctx context.Context, body []byte, signature string) bool {
	_, _, webhookSecret := s.getCredentials(ctx)
	if webhookSecret == "" {
		return true
	}
	h := hmac.New(sha256.New, []byte(webhookSecret))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ProcessWebhook handles Razorpay webhook events. Captured and failed are
// processed idempotently; everything else is logged and ignored.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	switch event {
	case "payment.captured":
		return s.handlePaymentCaptured(ctx, payload)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, payload)
	default:
		log.Printf("[Razorpay] Unhandled webhook event: %s", event)
		return nil
	}
}

// webhookEntity digs the payment entity out of the nested webhook payload
func webhookEntity(payload map[string]interface{}) map[string]interface{} {
	paymentEntity, ok := payload["payment"].(map[string]interface{})
	if !ok {
		paymentEntity = payload
	}
	entity, ok := paymentEntity["entity"].(map[string]interface{})
	if !ok {
		entity = paymentEntity
	}
	return entity
}

func (s *RazorpayService) handlePaymentCaptured(ctx context.Context, payload map[string]interface{}) error {
	entity := webhookEntity(payload)
	orderID, _ := entity["order_id"].(string)
	paymentID, _ := entity["id"].(string)
	if orderID == "" {
		return fmt.Errorf("missing order_id in webhook")
	}

	tx, err := s.Store.OnlineTxns.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if tx.Status == models.OnlineTxStatusSuccess {
		log.Printf("[Razorpay] Order %s already processed, skipping webhook", orderID)
		return nil
	}

	applyPaymentDetails(tx, entity)
	now := s.nowFn()
	tx.RazorpayPaymentID = paymentID
	tx.Status = models.OnlineTxStatusSuccess
	tx.CompletedAt = &now
	if err := s.Store.OnlineTxns.Update(ctx, tx); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	metrics.OnlinePaymentsTotal.WithLabelValues("success").Inc()

	return s.settleLedger(ctx, tx)
}

func (s *RazorpayService) handlePaymentFailed(ctx context.Context, payload map[string]interface{}) error {
	entity := webhookEntity(payload)
	orderID, _ := entity["order_id"].(string)
	if orderID == "" {
		return nil
	}
	reason := "payment failed"
	if desc, ok := entity["error_description"].(string); ok && desc != "" {
		reason = desc
	}
	s.markFailed(ctx, orderID, reason)
	return nil
}

// ReconcilePayments settles ledger obligations for transactions that
// succeeded at Razorpay but whose ledger write was lost. Returns how many
// were repaired.
func (s *RazorpayService) ReconcilePayments(ctx context.Context) (int, error) {
	txns, err := s.Store.OnlineTxns.List(ctx)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, tx := range txns {
		if tx.Status != models.OnlineTxStatusSuccess || tx.RentPaymentID == "" {
			continue
		}
		payment, err := s.Store.RentPayments.GetByID(ctx, tx.RentPaymentID)
		if err != nil {
			log.Printf("[Razorpay] Reconcile skipped order %s: %v", tx.RazorpayOrderID, err)
			continue
		}
		if payment.Status == models.PaymentStatusPaid {
			continue
		}
		if err := s.settleLedger(ctx, tx); err != nil {
			log.Printf("[Razorpay] Failed to reconcile order %s: %v", tx.RazorpayOrderID, err)
			continue
		}
		reconciled++
		log.Printf("[Razorpay] Reconciled order %s onto payment %s (Rs. %.2f)", tx.RazorpayOrderID, tx.RentPaymentID, tx.Amount)
	}
	return reconciled, nil
}

// GetTransactionHistory returns a tenant's checkout attempts, newest first
func (s *RazorpayService) GetTransactionHistory(ctx context.Context, tenantID string) ([]*models.OnlineTransaction, error) {
	return s.Store.OnlineTxns.GetByTenant(ctx, tenantID)
}

// GetAllTransactions returns every checkout attempt, newest first
func (s *RazorpayService) GetAllTransactions(ctx context.Context) ([]*models.OnlineTransaction, error) {
	return s.Store.OnlineTxns.List(ctx)
}
