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

func newReportFixture(t *testing.T) (*ReportService, *repositories.Store, *models.Tenant) {
	t.Helper()
	store, tenant := newLedgerFixture(t)
	svc := NewReportService(store)
	svc.nowFn = testClock(istDate(2026, time.January, 10))
	return svc, store, tenant
}

// storePayment writes a fully-specified payment straight into the store
func storePayment(t *testing.T, store *repositories.Store, p *models.RentPayment) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.DueDate.AddDate(0, 0, -10)
		p.UpdatedAt = p.CreatedAt
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = models.PaymentMethodCash
	}
	require.NoError(t, store.RentPayments.Save(context.Background(), p))
}

func TestGenerateRentCollectionReport(t *testing.T) {
	ctx := context.Background()
	jan1 := istDate(2026, time.January, 1)
	jan31 := istDate(2026, time.January, 31)

	t.Run("Aggregates the due-date window into collection totals", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		paid := istDate(2026, time.January, 6)

		storePayment(t, store, &models.RentPayment{
			ID:      "p-paid", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount:  10000, LateFee: 2000, ActualAmountPaid: 12000,
			DueDate: istDate(2026, time.January, 5), PaidDate: &paid,
			Status:  models.PaymentStatusPaid, PaymentMethod: models.PaymentMethodUPI,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "p-overdue", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 5),
			Status: models.PaymentStatusOverdue,
		})
		// outside the window, must not count
		storePayment(t, store, &models.RentPayment{
			ID:     "p-feb", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.February, 5),
			Status: models.PaymentStatusPending,
		})

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeMonthly)
		require.NoError(t, err)

		assert.Equal(t, 20000.0, report.TotalExpectedRent)
		assert.Equal(t, 12000.0, report.TotalCollectedRent) // rent plus collected late fee
		assert.Equal(t, 8000.0, report.TotalOutstandingRent)
		assert.Equal(t, 60.0, report.CollectionRate) // 12000 / 20000
		assert.Equal(t, 2, report.TotalPayments)
		assert.Equal(t, models.ReportTypeMonthly, report.ReportType)
		assert.True(t, report.GeneratedAt.Equal(istDate(2026, time.January, 10)))
	})

	t.Run("Days past due is the worst obligation, not a sum", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)

		storePayment(t, store, &models.RentPayment{
			ID:     "od-1", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 5), // 5 days late on Jan 10
			Status: models.PaymentStatusOverdue,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "od-2", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 2), // 8 days late
			Status: models.PaymentStatusOverdue,
		})

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)

		require.Len(t, report.TenantBreakdown, 1)
		entry := report.TenantBreakdown[0]
		assert.Equal(t, 8, entry.DaysPastDue) // max(5, 8), never 13
		assert.Equal(t, "Asha Verma", entry.TenantName)
		assert.Len(t, entry.Payments, 2)
	})

	t.Run("Method percentages cover paid payments only and sum to 100", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		paid := istDate(2026, time.January, 6)

		storePayment(t, store, &models.RentPayment{
			ID:     "m-upi", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 12000, DueDate: istDate(2026, time.January, 5), PaidDate: &paid,
			Status: models.PaymentStatusPaid, PaymentMethod: models.PaymentMethodUPI,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "m-cash", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 4000, DueDate: istDate(2026, time.January, 7), PaidDate: &paid,
			Status: models.PaymentStatusPaid, PaymentMethod: models.PaymentMethodCash,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "m-pending", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 9000, DueDate: istDate(2026, time.January, 8),
			Status: models.PaymentStatusPending, PaymentMethod: models.PaymentMethodCheque,
		})

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)

		require.Len(t, report.PaymentMethodBreakdown, 2) // pending cheque never shows
		byMethod := map[models.PaymentMethod]models.PaymentMethodCollection{}
		for _, m := range report.PaymentMethodBreakdown {
			byMethod[m.Method] = m
		}
		assert.Equal(t, 75.0, byMethod[models.PaymentMethodUPI].Percentage)  // 12000 / 16000
		assert.Equal(t, 25.0, byMethod[models.PaymentMethodCash].Percentage) // 4000 / 16000
		assert.Equal(t, 1, byMethod[models.PaymentMethodUPI].Count)
	})

	t.Run("Groups the property breakdown by property and unit", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		paid := istDate(2026, time.January, 6)

		storePayment(t, store, &models.RentPayment{
			ID:     "u-1a", TenantID: tenant.ID, PropertyID: "bld-1", PropertyType: models.PropertyTypeBuilding, UnitID: "apt-1",
			Amount: 8000, DueDate: istDate(2026, time.January, 5), PaidDate: &paid,
			Status: models.PaymentStatusPaid, PaymentMethod: models.PaymentMethodCash,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "u-2a", TenantID: tenant.ID, PropertyID: "bld-1", PropertyType: models.PropertyTypeBuilding, UnitID: "apt-2",
			Amount: 9000, DueDate: istDate(2026, time.January, 5),
			Status: models.PaymentStatusPending,
		})

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)

		require.Len(t, report.PropertyBreakdown, 2)
		first := report.PropertyBreakdown[0]
		assert.Equal(t, "apt-1", first.UnitID)
		assert.Equal(t, 8000.0, first.CollectedRent)
		assert.Equal(t, 100.0, first.CollectionRate)
		second := report.PropertyBreakdown[1]
		assert.Equal(t, "apt-2", second.UnitID)
		assert.Equal(t, 9000.0, second.OutstandingRent)
		assert.Equal(t, 0.0, second.CollectionRate)
	})

	t.Run("An empty window reports a zero rate, not a division error", func(t *testing.T) {
		svc, _, _ := newReportFixture(t)

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)
		assert.Equal(t, 0.0, report.CollectionRate)
		assert.Equal(t, 0, report.TotalPayments)
		assert.Empty(t, report.PropertyBreakdown)
	})

	t.Run("Reports are archived append-only", func(t *testing.T) {
		svc, _, _ := newReportFixture(t)

		_, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)
		_, err = svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)

		archived, err := svc.ListCollectionReports(ctx)
		require.NoError(t, err)
		assert.Len(t, archived, 2)
	})

	t.Run("A missing report type defaults to custom", func(t *testing.T) {
		svc, _, _ := newReportFixture(t)
		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, "")
		require.NoError(t, err)
		assert.Equal(t, models.ReportTypeCustom, report.ReportType)
	})

	t.Run("Rejects an inverted or incomplete window", func(t *testing.T) {
		svc, _, _ := newReportFixture(t)

		_, err := svc.GenerateRentCollectionReport(ctx, jan31, jan1, models.ReportTypeCustom)
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.GenerateRentCollectionReport(ctx, time.Time{}, jan31, models.ReportTypeCustom)
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.GenerateRentCollectionReport(ctx, jan1, jan31, "weekly")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("A tenant removed from the directory keeps their id in the breakdown", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		storePayment(t, store, &models.RentPayment{
			ID:     "gone-1", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 5),
			Status: models.PaymentStatusPending,
		})
		require.NoError(t, store.Tenants.Delete(ctx, tenant.ID))

		report, err := svc.GenerateRentCollectionReport(ctx, jan1, jan31, models.ReportTypeCustom)
		require.NoError(t, err)
		require.Len(t, report.TenantBreakdown, 1)
		assert.Equal(t, tenant.ID, report.TenantBreakdown[0].TenantID)
		assert.Empty(t, report.TenantBreakdown[0].TenantName)
	})
}

func TestGetRentAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("Counts distinct tenants and properties", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		other := &models.Tenant{
			ID:              "tenant-2", Name: "Ravi Joshi", Phone: "9876500000",
			PropertyID:      "flat-2", PropertyType: models.PropertyTypeFlat, IsActive: true,
			RentalAgreement: models.RentalAgreement{RentAmount: 6000, RentDueDate: 1},
		}
		require.NoError(t, store.Tenants.Save(ctx, other))

		paid := istDate(2026, time.January, 6)
		storePayment(t, store, &models.RentPayment{
			ID:     "a-1", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 5), PaidDate: &paid,
			Status: models.PaymentStatusPaid, PaymentMethod: models.PaymentMethodUPI,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "a-2", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.February, 5),
			Status: models.PaymentStatusPending,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "a-3", TenantID: "tenant-2", PropertyID: "flat-2", PropertyType: models.PropertyTypeFlat,
			Amount: 6000, DueDate: istDate(2026, time.January, 1),
			Status: models.PaymentStatusOverdue,
		})

		analytics, err := svc.GetRentAnalytics(ctx, time.Time{}, time.Time{})
		require.NoError(t, err)

		assert.Equal(t, 3, analytics.TotalPayments)
		assert.Equal(t, 2, analytics.TotalTenants)
		assert.Equal(t, 2, analytics.TotalProperties)
		assert.Equal(t, 26000.0, analytics.TotalExpectedRent)
		assert.Equal(t, 10000.0, analytics.TotalCollectedRent)
		assert.Equal(t, 13000.0, analytics.AverageRentPerProperty) // 26000 / 2
	})

	t.Run("A bounded window filters by due date", func(t *testing.T) {
		svc, store, tenant := newReportFixture(t)
		storePayment(t, store, &models.RentPayment{
			ID:     "w-jan", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.January, 5),
			Status: models.PaymentStatusPending,
		})
		storePayment(t, store, &models.RentPayment{
			ID:     "w-feb", TenantID: tenant.ID, PropertyID: "flat-1", PropertyType: models.PropertyTypeFlat,
			Amount: 10000, DueDate: istDate(2026, time.February, 5),
			Status: models.PaymentStatusPending,
		})

		analytics, err := svc.GetRentAnalytics(ctx, istDate(2026, time.January, 1), istDate(2026, time.January, 31))
		require.NoError(t, err)
		assert.Equal(t, 1, analytics.TotalPayments)
		assert.Equal(t, 10000.0, analytics.TotalExpectedRent)
	})

	t.Run("Rejects a window ending before it starts", func(t *testing.T) {
		svc, _, _ := newReportFixture(t)
		_, err := svc.GetRentAnalytics(ctx, istDate(2026, time.January, 31), istDate(2026, time.January, 1))
		assert.True(t, apperrors.IsValidation(err))
	})
}
