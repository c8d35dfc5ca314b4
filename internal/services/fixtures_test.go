package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/repositories/memory"
	"rentledger-backend/internal/timeutil"
)

var seedSeq atomic.Int64

// testClock pins a service's nowFn to a fixed instant
func testClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func istDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, timeutil.IST)
}

// newLedgerFixture builds an in-memory store holding one flat and one active
// tenant renting it for Rs. 10,000 due on the 5th
func newLedgerFixture(t *testing.T) (*repositories.Store, *models.Tenant) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	flat := &models.Flat{
		ID:        "flat-1",
		Name:      "Green View",
		Address:   "12 MG Road, Pune",
		CreatedAt: istDate(2025, time.June, 1),
		UpdatedAt: istDate(2025, time.June, 1),
	}
	require.NoError(t, store.Properties.SaveFlat(ctx, flat))

	tenant := &models.Tenant{
		ID:           "tenant-1",
		Name:         "Asha Verma",
		Phone:        "9876543210",
		PropertyID:   flat.ID,
		PropertyType: models.PropertyTypeFlat,
		RentalAgreement: models.RentalAgreement{
			RentAmount:      10000,
			RentDueDate:     5,
			SecurityDeposit: 20000,
			PaymentMethod:   models.PaymentMethodUPI,
		},
		IsActive:   true,
		MoveInDate: istDate(2025, time.June, 1),
		CreatedAt:  istDate(2025, time.June, 1),
		UpdatedAt:  istDate(2025, time.June, 1),
	}
	require.NoError(t, store.Tenants.Save(ctx, tenant))
	return store, tenant
}

// newPaymentFixture wires the payment/receipt service pair over a fresh
// ledger fixture with the clock pinned to 2026-01-10 IST
func newPaymentFixture(t *testing.T) (*PaymentService, *repositories.Store, *models.Tenant) {
	t.Helper()
	store, tenant := newLedgerFixture(t)

	now := istDate(2026, time.January, 10)
	directory := NewDirectoryService(store)
	receipts := NewReceiptService(store, directory)
	receipts.nowFn = testClock(now)
	payments := NewPaymentService(store, receipts)
	payments.nowFn = testClock(now)
	return payments, store, tenant
}

// seedPendingPayment stores a pending obligation directly, bypassing the
// service, so tests control every field
func seedPendingPayment(t *testing.T, store *repositories.Store, id string, tenant *models.Tenant, amount float64, dueDate time.Time) *models.RentPayment {
	t.Helper()
	payment := &models.RentPayment{
		ID:            id,
		TenantID:      tenant.ID,
		PropertyID:    tenant.PropertyID,
		PropertyType:  tenant.PropertyType,
		UnitID:        tenant.UnitID,
		Amount:        amount,
		DueDate:       dueDate,
		Status:        models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodCash,
		ReceiptNumber: fmt.Sprintf("RCP-20251201-%06d", seedSeq.Add(1)),
		CreatedAt:     dueDate.AddDate(0, 0, -10),
		UpdatedAt:     dueDate.AddDate(0, 0, -10),
	}
	require.NoError(t, store.RentPayments.Save(context.Background(), payment))
	return payment
}
