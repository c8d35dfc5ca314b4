package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

func TestCreateRentPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Records a pending obligation with directory fallbacks", func(t *testing.T) {
		svc, _, tenant := newPaymentFixture(t)

		payment, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: tenant.ID,
			Amount:   10000,
			DueDate:  istDate(2026, time.February, 5),
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.Equal(t, tenant.PropertyID, payment.PropertyID)
		assert.Equal(t, models.PropertyTypeFlat, payment.PropertyType)
		// falls back to the agreement's method, not cash
		assert.Equal(t, models.PaymentMethodUPI, payment.PaymentMethod)
		assert.Nil(t, payment.PaidDate)
		assert.Equal(t, "RCP-20260110-000001", payment.ReceiptNumber)
	})

	t.Run("Falls back to cash when neither request nor agreement name a method", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		tenant.RentalAgreement.PaymentMethod = ""
		require.NoError(t, store.Tenants.Update(ctx, tenant))

		payment, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: tenant.ID,
			Amount:   10000,
			DueDate:  istDate(2026, time.February, 5),
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentMethodCash, payment.PaymentMethod)
	})

	t.Run("Recording an already-settled payment generates its receipt", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		paid := istDate(2026, time.January, 4)

		payment, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID:      tenant.ID,
			Amount:        10000,
			LateFee:       500,
			Discount:      200,
			DueDate:       istDate(2026, time.January, 5),
			Status:        models.PaymentStatusPaid,
			PaidDate:      &paid,
			PaymentMethod: models.PaymentMethodCash,
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		require.NotNil(t, payment.PaidDate)
		assert.True(t, payment.PaidDate.Equal(paid))
		assert.Equal(t, 10300.0, payment.ActualAmountPaid) // 10000 + 500 - 200

		receipt, err := store.RentReceipts.GetByPaymentID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.ReceiptNumber, receipt.ReceiptNumber)
		assert.Equal(t, 10300.0, receipt.TotalAmount)
	})

	t.Run("Paid date defaults to now when settled at creation without one", func(t *testing.T) {
		svc, _, tenant := newPaymentFixture(t)

		payment, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: tenant.ID,
			Amount:   8000,
			DueDate:  istDate(2026, time.January, 5),
			Status:   models.PaymentStatusPaid,
		})
		require.NoError(t, err)
		require.NotNil(t, payment.PaidDate)
		assert.True(t, payment.PaidDate.Equal(istDate(2026, time.January, 10)))
	})

	t.Run("Receipt numbers increase with each recorded payment", func(t *testing.T) {
		svc, _, tenant := newPaymentFixture(t)

		first, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: tenant.ID, Amount: 10000, DueDate: istDate(2026, time.February, 5),
		})
		require.NoError(t, err)
		second, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: tenant.ID, Amount: 10000, DueDate: istDate(2026, time.March, 5),
		})
		require.NoError(t, err)

		assert.Equal(t, "RCP-20260110-000001", first.ReceiptNumber)
		assert.Equal(t, "RCP-20260110-000002", second.ReceiptNumber)
	})

	t.Run("Rejects malformed input", func(t *testing.T) {
		svc, _, tenant := newPaymentFixture(t)
		due := istDate(2026, time.February, 5)

		cases := []struct {
			name string
			req  *models.CreateRentPaymentRequest
		}{
			{"missing tenant", &models.CreateRentPaymentRequest{Amount: 10000, DueDate: due}},
			{"zero amount", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: 0, DueDate: due}},
			{"negative amount", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: -500, DueDate: due}},
			{"negative late fee", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: 10000, LateFee: -1, DueDate: due}},
			{"negative discount", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: 10000, Discount: -1, DueDate: due}},
			{"missing due date", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: 10000}},
			{"unknown status", &models.CreateRentPaymentRequest{TenantID: tenant.ID, Amount: 10000, DueDate: due, Status: "settled"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.CreateRentPayment(ctx, tc.req)
				assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
			})
		}
	})

	t.Run("Rejects an unregistered tenant", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(t)
		_, err := svc.CreateRentPayment(ctx, &models.CreateRentPaymentRequest{
			TenantID: "nobody",
			Amount:   10000,
			DueDate:  istDate(2026, time.February, 5),
		})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestMarkAsPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("Derives the collected amount when the caller omits it", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seeded := seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		seeded.LateFee = 500
		seeded.Discount = 200
		require.NoError(t, store.RentPayments.Update(ctx, seeded))

		payment, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{
			PaymentMethod: models.PaymentMethodUPI,
			TransactionID: "UTR123",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.Equal(t, 10300.0, payment.ActualAmountPaid) // 10000 + 500 - 200
		assert.Equal(t, models.PaymentMethodUPI, payment.PaymentMethod)
		assert.Equal(t, "UTR123", payment.TransactionID)
		require.NotNil(t, payment.PaidDate)
		assert.True(t, payment.PaidDate.Equal(istDate(2026, time.January, 10)))
	})

	t.Run("Honours an explicit collected amount", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		collected := 9900.0
		payment, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{ActualAmountPaid: &collected})
		require.NoError(t, err)
		assert.Equal(t, 9900.0, payment.ActualAmountPaid)
	})

	t.Run("Settling generates the receipt once", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)

		receipts, err := store.RentReceipts.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, receipts, 1)
		assert.Equal(t, "pay-1", receipts[0].PaymentID)
	})

	t.Run("Rejects settling an already-paid payment", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)

		_, err = svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already marked as paid")
	})

	t.Run("Rejects a negative collected amount", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		bad := -1.0
		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{ActualAmountPaid: &bad})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Settles a partial payment", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		_, err := svc.MarkAsPartiallyPaid(ctx, "pay-1", 4000)
		require.NoError(t, err)

		payment, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, payment.Status)
		assert.Equal(t, 10000.0, payment.ActualAmountPaid)
	})
}

func TestMarkAsPartiallyPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("Records money received without settling", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		payment, err := svc.MarkAsPartiallyPaid(ctx, "pay-1", 4000)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPartial, payment.Status)
		assert.Equal(t, 4000.0, payment.ActualAmountPaid)
		assert.Nil(t, payment.PaidDate)
	})

	t.Run("Rejects a partial amount covering the full obligation", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		_, err := svc.MarkAsPartiallyPaid(ctx, "pay-1", 10000)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "use mark-paid instead")
	})

	t.Run("Rejects non-positive amounts", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		_, err := svc.MarkAsPartiallyPaid(ctx, "pay-1", 0)
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.MarkAsPartiallyPaid(ctx, "pay-1", -50)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Rejects partial on a paid payment", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)

		_, err = svc.MarkAsPartiallyPaid(ctx, "pay-1", 4000)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestUpdateRentPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Patches only the fields present in the request", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		notes := "rent revised per addendum"
		amount := 11000.0
		payment, err := svc.UpdateRentPayment(ctx, "pay-1", &models.UpdateRentPaymentRequest{
			Amount: &amount,
			Notes:  &notes,
		})
		require.NoError(t, err)
		assert.Equal(t, 11000.0, payment.Amount)
		assert.Equal(t, notes, payment.Notes)
		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.True(t, payment.DueDate.Equal(istDate(2026, time.January, 5)))
	})

	t.Run("Enforces the status lifecycle", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)

		pending := models.PaymentStatusPending
		_, err = svc.UpdateRentPayment(ctx, "pay-1", &models.UpdateRentPaymentRequest{Status: &pending})
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "cannot transition from paid to pending")
	})

	t.Run("Transition to paid through update fills settlement fields and generates the receipt", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		paid := models.PaymentStatusPaid
		payment, err := svc.UpdateRentPayment(ctx, "pay-1", &models.UpdateRentPaymentRequest{Status: &paid})
		require.NoError(t, err)
		require.NotNil(t, payment.PaidDate)
		assert.Equal(t, 10000.0, payment.ActualAmountPaid)

		_, err = store.RentReceipts.GetByPaymentID(ctx, "pay-1")
		assert.NoError(t, err)
	})

	t.Run("Revalidates patched amounts", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))

		bad := -100.0
		_, err := svc.UpdateRentPayment(ctx, "pay-1", &models.UpdateRentPaymentRequest{Amount: &bad})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestDeleteRentPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes the payment and its receipt together", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "pay-1", tenant, 10000, istDate(2026, time.January, 5))
		_, err := svc.MarkAsPaid(ctx, "pay-1", &models.MarkPaidRequest{})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteRentPayment(ctx, "pay-1"))

		_, err = store.RentPayments.GetByID(ctx, "pay-1")
		assert.True(t, apperrors.IsNotFound(err))
		_, err = store.RentReceipts.GetByPaymentID(ctx, "pay-1")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Deleting an unknown payment reports not found", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(t)
		err := svc.DeleteRentPayment(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestUpdateOverduePayments(t *testing.T) {
	ctx := context.Background()

	t.Run("Sweeps past-due pending payments only", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)

		// clock is pinned to Jan 10
		seedPendingPayment(t, store, "past", tenant, 10000, istDate(2026, time.January, 5))
		seedPendingPayment(t, store, "future", tenant, 10000, istDate(2026, time.February, 5))
		seedPendingPayment(t, store, "settled", tenant, 10000, istDate(2026, time.January, 3))
		_, err := svc.MarkAsPaid(ctx, "settled", &models.MarkPaidRequest{})
		require.NoError(t, err)

		count, err := svc.UpdateOverduePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		past, _ := store.RentPayments.GetByID(ctx, "past")
		assert.Equal(t, models.PaymentStatusOverdue, past.Status)
		future, _ := store.RentPayments.GetByID(ctx, "future")
		assert.Equal(t, models.PaymentStatusPending, future.Status)
		settled, _ := store.RentPayments.GetByID(ctx, "settled")
		assert.Equal(t, models.PaymentStatusPaid, settled.Status)
	})

	t.Run("A second sweep finds nothing to do", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		seedPendingPayment(t, store, "past", tenant, 10000, istDate(2026, time.January, 5))

		count, err := svc.UpdateOverduePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = svc.UpdateOverduePayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestApplyLateFees(t *testing.T) {
	ctx := context.Background()

	overdueAt := func(t *testing.T, svc *PaymentService, store *repositories.Store, tenant *models.Tenant, id string, due time.Time) {
		t.Helper()
		seedPendingPayment(t, store, id, tenant, 10000, due)
		_, err := svc.UpdateOverduePayments(ctx)
		require.NoError(t, err)
	}

	t.Run("Applies the flat fee past the grace period", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		overdueAt(t, svc, store, tenant, "pay-1", istDate(2026, time.January, 2)) // 8 days late on Jan 10

		applied, err := svc.ApplyLateFees(ctx, 500, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)

		payment, _ := store.RentPayments.GetByID(ctx, "pay-1")
		assert.Equal(t, 500.0, payment.LateFee)
		assert.Equal(t, 10500.0, payment.DerivedActualAmount()) // 10000 + 500
	})

	t.Run("Leaves payments inside the grace period alone", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		overdueAt(t, svc, store, tenant, "pay-1", istDate(2026, time.January, 8)) // 2 days late

		applied, err := svc.ApplyLateFees(ctx, 500, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)
	})

	t.Run("Never stacks a second fee", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		overdueAt(t, svc, store, tenant, "pay-1", istDate(2026, time.January, 2))

		_, err := svc.ApplyLateFees(ctx, 500, 3)
		require.NoError(t, err)
		applied, err := svc.ApplyLateFees(ctx, 500, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)

		payment, _ := store.RentPayments.GetByID(ctx, "pay-1")
		assert.Equal(t, 500.0, payment.LateFee)
	})

	t.Run("A non-positive fee disables the pass", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		overdueAt(t, svc, store, tenant, "pay-1", istDate(2026, time.January, 2))

		applied, err := svc.ApplyLateFees(ctx, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)
	})
}

func TestGenerateMonthlyRentPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates one pending obligation per active tenant", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)

		created, err := svc.GenerateMonthlyRentPayments(ctx, time.February, 2026)
		require.NoError(t, err)
		require.Len(t, created, 1)

		payment := created[0]
		assert.Equal(t, tenant.ID, payment.TenantID)
		assert.Equal(t, 10000.0, payment.Amount)
		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.True(t, payment.DueDate.Equal(istDate(2026, time.February, 5)))

		stored, err := store.RentPayments.GetByTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("Clamps the due day into short months", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)
		tenant.RentalAgreement.RentDueDate = 31
		require.NoError(t, store.Tenants.Update(ctx, tenant))

		created, err := svc.GenerateMonthlyRentPayments(ctx, time.February, 2026)
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.True(t, created[0].DueDate.Equal(istDate(2026, time.February, 28)))
	})

	t.Run("A rerun for the same month creates nothing", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(t)

		created, err := svc.GenerateMonthlyRentPayments(ctx, time.February, 2026)
		require.NoError(t, err)
		assert.Len(t, created, 1)

		created, err = svc.GenerateMonthlyRentPayments(ctx, time.February, 2026)
		require.NoError(t, err)
		assert.Empty(t, created)
	})

	t.Run("Skips tenants that cannot be billed", func(t *testing.T) {
		svc, store, _ := newPaymentFixture(t)

		inactive := &models.Tenant{
			ID:              "tenant-inactive", Name: "Gone", Phone: "9000000001",
			PropertyID:      "flat-1", PropertyType: models.PropertyTypeFlat,
			RentalAgreement: models.RentalAgreement{RentAmount: 9000, RentDueDate: 5},
		}
		unlinked := &models.Tenant{
			ID:              "tenant-unlinked", Name: "No Property", Phone: "9000000002",
			IsActive:        true,
			RentalAgreement: models.RentalAgreement{RentAmount: 9000, RentDueDate: 5},
		}
		zeroRent := &models.Tenant{
			ID:              "tenant-zero", Name: "Caretaker", Phone: "9000000003",
			PropertyID:      "flat-1", PropertyType: models.PropertyTypeFlat,
			IsActive:        true,
			RentalAgreement: models.RentalAgreement{RentDueDate: 5},
		}
		for _, extra := range []*models.Tenant{inactive, unlinked, zeroRent} {
			require.NoError(t, store.Tenants.Save(ctx, extra))
		}

		created, err := svc.GenerateMonthlyRentPayments(ctx, time.February, 2026)
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, "tenant-1", created[0].TenantID)
	})

	t.Run("Validates the month and year", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(t)

		_, err := svc.GenerateMonthlyRentPayments(ctx, time.Month(13), 2026)
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.GenerateMonthlyRentPayments(ctx, time.March, 1800)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestGetUpcomingPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("Window is inclusive and pending-only", func(t *testing.T) {
		svc, store, tenant := newPaymentFixture(t)

		// clock pinned to Jan 10; 7 days ahead covers Jan 10..17
		seedPendingPayment(t, store, "today", tenant, 10000, istDate(2026, time.January, 10))
		seedPendingPayment(t, store, "edge", tenant, 10000, istDate(2026, time.January, 17))
		seedPendingPayment(t, store, "beyond", tenant, 10000, istDate(2026, time.January, 18))
		seedPendingPayment(t, store, "past", tenant, 10000, istDate(2026, time.January, 2))
		_, err := svc.UpdateOverduePayments(ctx)
		require.NoError(t, err)

		upcoming, err := svc.GetUpcomingPayments(ctx, 7)
		require.NoError(t, err)

		ids := make([]string, 0, len(upcoming))
		for _, p := range upcoming {
			ids = append(ids, p.ID)
		}
		assert.ElementsMatch(t, []string{"today", "edge"}, ids)
	})

	t.Run("Rejects a negative horizon", func(t *testing.T) {
		svc, _, _ := newPaymentFixture(t)
		_, err := svc.GetUpcomingPayments(ctx, -1)
		assert.True(t, apperrors.IsValidation(err))
	})
}
