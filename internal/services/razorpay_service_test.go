package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/config"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

const testKeySecret = "test-key-secret"

// newRazorpayFixture wires the checkout service over the payment fixture.
// Only the key secret is configured, never the key id, so getClient stays
// nil and no test ever talks to Razorpay over HTTP.
func newRazorpayFixture(t *testing.T) (*RazorpayService, *PaymentService, *repositories.Store, *models.Tenant) {
	t.Helper()
	payments, store, tenant := newPaymentFixture(t)

	cfg := &config.Config{}
	cfg.Razorpay.KeySecret = testKeySecret
	svc := NewRazorpayService(store, payments, cfg)
	svc.nowFn = testClock(istDate(2026, time.January, 10))
	return svc, payments, store, tenant
}

func razorpaySignature(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

// seedCheckout stores a pending checkout record the way CreateOrder would
func seedCheckout(t *testing.T, store *repositories.Store, orderID string, payment *models.RentPayment, tenant *models.Tenant, amount, fee float64) *models.OnlineTransaction {
	t.Helper()
	tx := &models.OnlineTransaction{
		ID:              "tx-" + orderID,
		RazorpayOrderID: orderID,
		TenantID:        tenant.ID,
		TenantPhone:     tenant.Phone,
		TenantName:      tenant.Name,
		RentPaymentID:   payment.ID,
		Amount:          amount,
		FeeAmount:       fee,
		TotalAmount:     amount + fee,
		Status:          models.OnlineTxStatusPending,
		CreatedAt:       istDate(2026, time.January, 9),
	}
	require.NoError(t, store.OnlineTxns.Save(context.Background(), tx))
	return tx
}

func TestRazorpayFees(t *testing.T) {
	ctx := context.Background()

	t.Run("Fee percent defaults without a setting", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		assert.Equal(t, 2.5, svc.GetFeePercent(ctx))
	})

	t.Run("Fee percent reads the operator setting", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentFeePercent, "3.5", "", "user-1"))
		assert.Equal(t, 3.5, svc.GetFeePercent(ctx))
	})

	t.Run("Unparseable fee setting falls back to the default", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentFeePercent, "two point five", "", "user-1"))
		assert.Equal(t, 2.5, svc.GetFeePercent(ctx))
	})

	t.Run("Convenience fee rounds to paise precision", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		assert.Equal(t, 250.0, svc.CalculateFee(10000, 2.5))
		assert.Equal(t, 83.33, svc.CalculateFee(3333.33, 2.5)) // 83.33325
		assert.Equal(t, 25.0, svc.CalculateFee(999.99, 2.5))  // 24.99975
	})

	t.Run("Rupee amounts convert to whole paise", func(t *testing.T) {
		assert.Equal(t, 1025000, paise(10250))
		assert.Equal(t, 12346, paise(123.456))
		assert.Equal(t, 0, paise(0))
	})
}

func TestRazorpayPaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Checkout is disabled until the operator enables it", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		assert.False(t, svc.IsEnabled(ctx))

		status := svc.GetPaymentStatus(ctx)
		assert.False(t, status.Enabled)
		assert.Equal(t, 2.5, status.FeePercent)
		assert.Empty(t, status.KeyID)
	})

	t.Run("Enabled status exposes the key id from settings", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "true", "", "user-1"))
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingRazorpayKeyID, "rzp_test_abc123", "", "user-1"))

		status := svc.GetPaymentStatus(ctx)
		assert.True(t, status.Enabled)
		assert.Equal(t, "rzp_test_abc123", status.KeyID)
	})

	t.Run("Any value other than true keeps checkout off", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "yes", "", "user-1"))
		assert.False(t, svc.IsEnabled(ctx))
	})
}

func TestOutstandingAmount(t *testing.T) {
	t.Run("Pending obligation owes the derived total", func(t *testing.T) {
		payment := &models.RentPayment{
			Amount:   10000,
			LateFee:  500,
			Discount: 200,
			Status:   models.PaymentStatusPending,
		}
		assert.Equal(t, 10300.0, outstandingAmount(payment))
	})

	t.Run("Partial settlement owes the remainder", func(t *testing.T) {
		payment := &models.RentPayment{
			Amount:           10000,
			LateFee:          500,
			Discount:         200,
			Status:           models.PaymentStatusPartial,
			ActualAmountPaid: 4000,
		}
		assert.Equal(t, 6300.0, outstandingAmount(payment)) // 10300 - 4000
	})

	t.Run("Overcollected partial owes nothing", func(t *testing.T) {
		payment := &models.RentPayment{
			Amount:           10000,
			Status:           models.PaymentStatusPartial,
			ActualAmountPaid: 12000,
		}
		assert.Equal(t, 0.0, outstandingAmount(payment))
	})
}

func TestCreateOrderGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("Checkout is rejected while online payments are disabled", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		_, err := svc.CreateOrder(ctx, &models.CreateCheckoutRequest{RentPaymentID: "p-1"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "disabled")
	})

	t.Run("Checkout requires a rent payment id", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "true", "", "user-1"))

		_, err := svc.CreateOrder(ctx, &models.CreateCheckoutRequest{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Checkout against an unknown payment is not found", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "true", "", "user-1"))

		_, err := svc.CreateOrder(ctx, &models.CreateCheckoutRequest{RentPaymentID: "ghost"})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Settled payments cannot be checked out again", func(t *testing.T) {
		svc, payments, store, tenant := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "true", "", "user-1"))
		seedPendingPayment(t, store, "p-settled", tenant, 10000, istDate(2026, time.January, 5))
		_, err := payments.MarkAsPaid(ctx, "p-settled", &models.MarkPaidRequest{})
		require.NoError(t, err)

		_, err = svc.CreateOrder(ctx, &models.CreateCheckoutRequest{RentPaymentID: "p-settled"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already settled")
	})

	t.Run("Checkout without gateway credentials fails plainly", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingOnlinePaymentEnabled, "true", "", "user-1"))
		seedPendingPayment(t, store, "p-nocreds", tenant, 10000, istDate(2026, time.January, 5))

		// the fixture has a key secret but no key id
		_, err := svc.CreateOrder(ctx, &models.CreateCheckoutRequest{RentPaymentID: "p-nocreds"})
		require.Error(t, err)
		assert.False(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "razorpay client not configured")
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid signature settles the checkout and the ledger", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-verify", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_ok", payment, tenant, 10000, 250)

		tx, err := svc.VerifyPayment(ctx, &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_ok",
			RazorpayPaymentID: "pay_123",
			RazorpaySignature: razorpaySignature(testKeySecret, "order_ok", "pay_123"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusSuccess, tx.Status)
		assert.Equal(t, "pay_123", tx.RazorpayPaymentID)
		require.NotNil(t, tx.CompletedAt)
		assert.True(t, tx.CompletedAt.Equal(istDate(2026, time.January, 10)))

		settled, err := store.RentPayments.GetByID(ctx, "p-verify")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
		assert.Equal(t, 10000.0, settled.ActualAmountPaid)
		assert.Equal(t, "pay_123", settled.TransactionID)
		// no method details were fetched, so the ledger records a bank transfer
		assert.Equal(t, models.PaymentMethodBankTransfer, settled.PaymentMethod)
		require.NotNil(t, settled.PaidDate)
		assert.True(t, settled.PaidDate.Equal(istDate(2026, time.January, 10)))

		_, err = store.RentReceipts.GetByPaymentID(ctx, "p-verify")
		assert.NoError(t, err)
	})

	t.Run("Invalid signature marks the checkout failed", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-badsig", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_bad", payment, tenant, 10000, 250)

		_, err := svc.VerifyPayment(ctx, &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_bad",
			RazorpayPaymentID: "pay_456",
			RazorpaySignature: "deadbeef",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "invalid payment signature")

		tx, err := store.OnlineTxns.GetByOrderID(ctx, "order_bad")
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusFailed, tx.Status)
		assert.Equal(t, "invalid signature", tx.FailureReason)
		require.NotNil(t, tx.CompletedAt)

		untouched, err := store.RentPayments.GetByID(ctx, "p-badsig")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, untouched.Status)
	})

	t.Run("Re-verifying a settled checkout returns it unchanged", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-again", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_again", payment, tenant, 10000, 250)

		req := &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_again",
			RazorpayPaymentID: "pay_789",
			RazorpaySignature: razorpaySignature(testKeySecret, "order_again", "pay_789"),
		}
		_, err := svc.VerifyPayment(ctx, req)
		require.NoError(t, err)

		tx, err := svc.VerifyPayment(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusSuccess, tx.Status)

		settled, err := store.RentPayments.GetByID(ctx, "p-again")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
	})

	t.Run("Valid signature for an unknown order is not found", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		_, err := svc.VerifyPayment(ctx, &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_missing",
			RazorpayPaymentID: "pay_x",
			RazorpaySignature: razorpaySignature(testKeySecret, "order_missing", "pay_x"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Missing key secret rejects every signature", func(t *testing.T) {
		payments, store, tenant := newPaymentFixture(t)
		svc := NewRazorpayService(store, payments, &config.Config{})
		payment := seedPendingPayment(t, store, "p-nosecret", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_nosecret", payment, tenant, 10000, 250)

		_, err := svc.VerifyPayment(ctx, &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_nosecret",
			RazorpayPaymentID: "pay_x",
			RazorpaySignature: razorpaySignature("", "order_nosecret", "pay_x"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"event":"payment.captured"}`)

	t.Run("Unset webhook secret skips verification", func(t *testing.T) {
		payments, store, _ := newPaymentFixture(t)
		svc := NewRazorpayService(store, payments, &config.Config{})
		assert.True(t, svc.VerifyWebhookSignature(ctx, body, "anything"))
	})

	t.Run("Configured secret verifies the body HMAC", func(t *testing.T) {
		svc, _, store, _ := newRazorpayFixture(t)
		require.NoError(t, store.Settings.Upsert(ctx, models.SettingRazorpayWebhookSecret, "whsec_test", "", "user-1"))

		h := hmac.New(sha256.New, []byte("whsec_test"))
		h.Write(body)
		good := hex.EncodeToString(h.Sum(nil))

		assert.True(t, svc.VerifyWebhookSignature(ctx, body, good))
		assert.False(t, svc.VerifyWebhookSignature(ctx, body, "deadbeef"))
	})
}

func TestProcessWebhook(t *testing.T) {
	ctx := context.Background()

	capturedPayload := func(orderID, paymentID string) map[string]interface{} {
		return map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"order_id": orderID,
					"method":   "upi",
					"vpa":      "asha@upi",
					"acquirer_data": map[string]interface{}{
						"upi_transaction_id": "UTR00123",
					},
				},
			},
		}
	}

	t.Run("Captured event settles the checkout with gateway details", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-wh", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_wh", payment, tenant, 10000, 250)

		require.NoError(t, svc.ProcessWebhook(ctx, "payment.captured", capturedPayload("order_wh", "pay_wh1")))

		tx, err := store.OnlineTxns.GetByOrderID(ctx, "order_wh")
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusSuccess, tx.Status)
		assert.Equal(t, "pay_wh1", tx.RazorpayPaymentID)
		assert.Equal(t, "UTR00123", tx.UTRNumber)
		assert.Equal(t, "upi", tx.PaymentMethod)
		assert.Equal(t, "asha@upi", tx.VPA)

		settled, err := store.RentPayments.GetByID(ctx, "p-wh")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
		assert.Equal(t, "UTR00123", settled.TransactionID)
		assert.Equal(t, models.PaymentMethodUPI, settled.PaymentMethod)
	})

	t.Run("Captured event is idempotent", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-wh-dup", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_wh_dup", payment, tenant, 10000, 250)

		payload := capturedPayload("order_wh_dup", "pay_wh2")
		require.NoError(t, svc.ProcessWebhook(ctx, "payment.captured", payload))
		require.NoError(t, svc.ProcessWebhook(ctx, "payment.captured", payload))

		settled, err := store.RentPayments.GetByID(ctx, "p-wh-dup")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
	})

	t.Run("Failed event records the gateway reason", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-wh-fail", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_wh_fail", payment, tenant, 10000, 250)

		payload := map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"order_id":          "order_wh_fail",
					"error_description": "insufficient funds",
				},
			},
		}
		require.NoError(t, svc.ProcessWebhook(ctx, "payment.failed", payload))

		tx, err := store.OnlineTxns.GetByOrderID(ctx, "order_wh_fail")
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusFailed, tx.Status)
		assert.Equal(t, "insufficient funds", tx.FailureReason)

		untouched, err := store.RentPayments.GetByID(ctx, "p-wh-fail")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, untouched.Status)
	})

	t.Run("Failure never downgrades a settled checkout", func(t *testing.T) {
		svc, _, store, tenant := newRazorpayFixture(t)
		payment := seedPendingPayment(t, store, "p-wh-late", tenant, 10000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_wh_late", payment, tenant, 10000, 250)

		require.NoError(t, svc.ProcessWebhook(ctx, "payment.captured", capturedPayload("order_wh_late", "pay_wh3")))

		failPayload := map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"order_id":          "order_wh_late",
					"error_description": "timed out",
				},
			},
		}
		require.NoError(t, svc.ProcessWebhook(ctx, "payment.failed", failPayload))

		tx, err := store.OnlineTxns.GetByOrderID(ctx, "order_wh_late")
		require.NoError(t, err)
		assert.Equal(t, models.OnlineTxStatusSuccess, tx.Status)
		assert.Empty(t, tx.FailureReason)
	})

	t.Run("Unhandled events are ignored", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		assert.NoError(t, svc.ProcessWebhook(ctx, "order.paid", map[string]interface{}{}))
	})

	t.Run("Captured event without an order id errors", func(t *testing.T) {
		svc, _, _, _ := newRazorpayFixture(t)
		payload := map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": "pay_orphan"},
			},
		}
		require.Error(t, svc.ProcessWebhook(ctx, "payment.captured", payload))
	})
}

func TestReconcilePayments(t *testing.T) {
	ctx := context.Background()

	t.Run("Reconcile repairs a lost ledger write", func(t *testing.T) {
		svc, payments, store, tenant := newRazorpayFixture(t)

		// successful checkout whose ledger settlement was lost
		lost := seedPendingPayment(t, store, "p-rec", tenant, 10000, istDate(2026, time.January, 5))
		tx := seedCheckout(t, store, "order_rec", lost, tenant, 10000, 250)
		completed := istDate(2026, time.January, 9)
		tx.Status = models.OnlineTxStatusSuccess
		tx.RazorpayPaymentID = "pay_rec"
		tx.UTRNumber = "UTR-REC-1"
		tx.PaymentMethod = "upi"
		tx.CompletedAt = &completed
		require.NoError(t, store.OnlineTxns.Update(ctx, tx))

		// checkout still pending at the gateway
		open := seedPendingPayment(t, store, "p-open", tenant, 9000, istDate(2026, time.January, 5))
		seedCheckout(t, store, "order_open", open, tenant, 9000, 225)

		// successful checkout whose obligation is already settled
		done := seedPendingPayment(t, store, "p-done", tenant, 8000, istDate(2026, time.January, 5))
		doneTx := seedCheckout(t, store, "order_done", done, tenant, 8000, 200)
		doneTx.Status = models.OnlineTxStatusSuccess
		doneTx.CompletedAt = &completed
		require.NoError(t, store.OnlineTxns.Update(ctx, doneTx))
		_, err := payments.MarkAsPaid(ctx, "p-done", &models.MarkPaidRequest{})
		require.NoError(t, err)

		// successful checkout whose obligation no longer exists
		ghostTx := seedCheckout(t, store, "order_ghost", &models.RentPayment{ID: "p-ghost"}, tenant, 7000, 175)
		ghostTx.Status = models.OnlineTxStatusSuccess
		ghostTx.CompletedAt = &completed
		require.NoError(t, store.OnlineTxns.Update(ctx, ghostTx))

		repaired, err := svc.ReconcilePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		settled, err := store.RentPayments.GetByID(ctx, "p-rec")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
		assert.Equal(t, "UTR-REC-1", settled.TransactionID)
		assert.Equal(t, models.PaymentMethodUPI, settled.PaymentMethod)
		require.NotNil(t, settled.PaidDate)
		assert.True(t, settled.PaidDate.Equal(completed))

		stillOpen, err := store.RentPayments.GetByID(ctx, "p-open")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, stillOpen.Status)

		repaired, err = svc.ReconcilePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, repaired)
	})
}
