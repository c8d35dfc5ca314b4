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

func newDepositFixture(t *testing.T) (*DepositService, *repositories.Store, *models.Tenant) {
	t.Helper()
	store, tenant := newLedgerFixture(t)
	svc := NewDepositService(store, NewDirectoryService(store))
	svc.nowFn = testClock(istDate(2026, time.January, 10))
	return svc, store, tenant
}

func TestRecordSecurityDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Opens a held deposit with the tenant's property by default", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)

		deposit, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, istDate(2025, time.June, 1))
		require.NoError(t, err)

		assert.Equal(t, models.DepositStatusHeld, deposit.Status)
		assert.Equal(t, "flat-1", deposit.PropertyID)
		assert.Equal(t, 20000.0, deposit.Amount)
		assert.True(t, deposit.PaidDate.Equal(istDate(2025, time.June, 1)))
		assert.Empty(t, deposit.Deductions)
	})

	t.Run("A zero paid date defaults to now", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)

		deposit, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)
		assert.True(t, deposit.PaidDate.Equal(istDate(2026, time.January, 10)))
	})

	t.Run("Refuses a second held deposit for the same tenant", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		_, err = svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already has a held security deposit")
	})

	t.Run("Rejects non-positive amounts and unknown tenants", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)

		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 0, time.Time{})
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.RecordSecurityDeposit(ctx, "", "", 20000, time.Time{})
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.RecordSecurityDeposit(ctx, "nobody", "", 20000, time.Time{})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAddSecurityDepositDeduction(t *testing.T) {
	ctx := context.Background()

	t.Run("Appends charges and shrinks the refundable balance", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		deposit, err := svc.AddSecurityDepositDeduction(ctx, tenant.ID, &models.AddDeductionRequest{
			Description: "broken window pane",
			Amount:      1500,
			Category:    models.DeductionCategoryDamage,
		})
		require.NoError(t, err)
		deposit, err = svc.AddSecurityDepositDeduction(ctx, tenant.ID, &models.AddDeductionRequest{
			Description: "deep cleaning",
			Amount:      2500,
			Category:    models.DeductionCategoryCleaning,
		})
		require.NoError(t, err)

		require.Len(t, deposit.Deductions, 2)
		assert.Equal(t, 4000.0, deposit.DeductionTotal())    // 1500 + 2500
		assert.Equal(t, 16000.0, deposit.RefundableAmount()) // 20000 - 4000
		assert.NotEmpty(t, deposit.Deductions[0].ID)
	})

	t.Run("Deduction date defaults to now", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		deposit, err := svc.AddSecurityDepositDeduction(ctx, tenant.ID, &models.AddDeductionRequest{
			Description: "repainting",
			Amount:      3000,
			Category:    models.DeductionCategoryOther,
		})
		require.NoError(t, err)
		assert.True(t, deposit.Deductions[0].Date.Equal(istDate(2026, time.January, 10)))
	})

	t.Run("Validates the deduction input", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		cases := []*models.AddDeductionRequest{
			{Amount: 1500, Category: models.DeductionCategoryDamage},
			{Description: "x", Amount: 0, Category: models.DeductionCategoryDamage},
			{Description: "x", Amount: 1500, Category: "mystery"},
		}
		for _, req := range cases {
			_, err := svc.AddSecurityDepositDeduction(ctx, tenant.ID, req)
			assert.True(t, apperrors.IsValidation(err), "request %+v should be rejected", req)
		}
	})

	t.Run("Refuses deductions once the deposit left held", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)
		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, 20000, "")
		require.NoError(t, err)

		_, err = svc.AddSecurityDepositDeduction(ctx, tenant.ID, &models.AddDeductionRequest{
			Description: "late find", Amount: 100, Category: models.DeductionCategoryOther,
		})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestRefundSecurityDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Caps the refund at deposit minus deductions", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)
		_, err = svc.AddSecurityDepositDeduction(ctx, tenant.ID, &models.AddDeductionRequest{
			Description: "broken fittings", Amount: 4000, Category: models.DeductionCategoryDamage,
		})
		require.NoError(t, err)

		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, 16001, "")
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "exceeds the refundable balance")

		deposit, err := svc.RefundSecurityDeposit(ctx, tenant.ID, 16000, "full settlement")
		require.NoError(t, err)
		assert.Equal(t, models.DepositStatusRefunded, deposit.Status)
		require.NotNil(t, deposit.RefundAmount)
		assert.Equal(t, 16000.0, *deposit.RefundAmount)
		assert.Equal(t, "full settlement", deposit.RefundNotes)
		require.NotNil(t, deposit.RefundDate)
	})

	t.Run("A zero refund closes the deposit", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		deposit, err := svc.RefundSecurityDeposit(ctx, tenant.ID, 0, "absconded, dues pending")
		require.NoError(t, err)
		assert.Equal(t, models.DepositStatusRefunded, deposit.Status)
	})

	t.Run("Refunding twice is rejected", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)
		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, 20000, "")
		require.NoError(t, err)

		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, 0, "")
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "not held")
	})

	t.Run("Rejects a negative refund", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, -1, "")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestForfeitSecurityDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Keeps the deposit and records the reason", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		deposit, err := svc.ForfeitSecurityDeposit(ctx, tenant.ID, "three months unpaid rent")
		require.NoError(t, err)
		assert.Equal(t, models.DepositStatusForfeited, deposit.Status)
		assert.Equal(t, "three months unpaid rent", deposit.RefundNotes)
	})

	t.Run("Requires a reason", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)

		_, err = svc.ForfeitSecurityDeposit(ctx, tenant.ID, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Only a held deposit can be forfeited", func(t *testing.T) {
		svc, _, tenant := newDepositFixture(t)
		_, err := svc.RecordSecurityDeposit(ctx, tenant.ID, "", 20000, time.Time{})
		require.NoError(t, err)
		_, err = svc.RefundSecurityDeposit(ctx, tenant.ID, 20000, "")
		require.NoError(t, err)

		_, err = svc.ForfeitSecurityDeposit(ctx, tenant.ID, "too late")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestProcessTenantMoveIn(t *testing.T) {
	ctx := context.Background()

	t.Run("Activates the tenant, occupies the unit and opens the deposit", func(t *testing.T) {
		svc, store, tenant := newDepositFixture(t)
		tenant.IsActive = false
		require.NoError(t, store.Tenants.Update(ctx, tenant))

		moved, err := svc.ProcessTenantMoveIn(ctx, tenant.ID, istDate(2026, time.January, 15))
		require.NoError(t, err)

		assert.True(t, moved.IsActive)
		assert.True(t, moved.MoveInDate.Equal(istDate(2026, time.January, 15)))
		assert.Nil(t, moved.MoveOutDate)

		flat, err := store.Properties.GetFlatByID(ctx, "flat-1")
		require.NoError(t, err)
		assert.True(t, flat.IsOccupied)
		assert.Equal(t, tenant.ID, flat.CurrentTenantID)

		deposit, err := store.Deposits.GetByTenantID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DepositStatusHeld, deposit.Status)
		assert.Equal(t, 20000.0, deposit.Amount) // from the rental agreement
		assert.True(t, deposit.PaidDate.Equal(istDate(2026, time.January, 15)))
	})

	t.Run("Does not open a second deposit on repeat move-in", func(t *testing.T) {
		svc, store, tenant := newDepositFixture(t)
		_, err := svc.ProcessTenantMoveIn(ctx, tenant.ID, istDate(2026, time.January, 15))
		require.NoError(t, err)
		_, err = svc.ProcessTenantMoveIn(ctx, tenant.ID, istDate(2026, time.January, 16))
		require.NoError(t, err)

		deposits, err := store.Deposits.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, deposits, 1)
	})

	t.Run("Skips the deposit when the agreement carries none", func(t *testing.T) {
		svc, store, tenant := newDepositFixture(t)
		tenant.RentalAgreement.SecurityDeposit = 0
		require.NoError(t, store.Tenants.Update(ctx, tenant))

		_, err := svc.ProcessTenantMoveIn(ctx, tenant.ID, time.Time{})
		require.NoError(t, err)

		_, err = store.Deposits.GetByTenantID(ctx, tenant.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestProcessTenantMoveOut(t *testing.T) {
	ctx := context.Background()

	t.Run("Deactivates the tenant and frees the unit, deposit stays held", func(t *testing.T) {
		svc, store, tenant := newDepositFixture(t)
		_, err := svc.ProcessTenantMoveIn(ctx, tenant.ID, istDate(2025, time.June, 1))
		require.NoError(t, err)

		moved, err := svc.ProcessTenantMoveOut(ctx, tenant.ID, istDate(2026, time.January, 31))
		require.NoError(t, err)

		assert.False(t, moved.IsActive)
		require.NotNil(t, moved.MoveOutDate)
		assert.True(t, moved.MoveOutDate.Equal(istDate(2026, time.January, 31)))

		flat, err := store.Properties.GetFlatByID(ctx, "flat-1")
		require.NoError(t, err)
		assert.False(t, flat.IsOccupied)
		assert.Empty(t, flat.CurrentTenantID)

		deposit, err := store.Deposits.GetByTenantID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DepositStatusHeld, deposit.Status)
	})
}
