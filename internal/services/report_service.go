package services

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

// ReportService aggregates the payment ledger into collection reports and
// dashboard analytics. Reports are archived append-only; requesting the same
// window twice produces two independent snapshots of the then-current ledger.
type ReportService struct {
	Store *repositories.Store

	nowFn func() time.Time
}

func NewReportService(store *repositories.Store) *ReportService {
	return &ReportService{
		Store: store,
		nowFn: timeutil.Now,
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateRentCollectionReport aggregates every payment whose due date falls
// inside the inclusive window, archives the result and returns it.
func (s *ReportService) GenerateRentCollectionReport(ctx context.Context, start, end time.Time, reportType models.ReportType) (*models.RentCollectionReport, error) {
	if start.IsZero() {
		return nil, apperrors.NewValidation("start_date", "start_date is required")
	}
	if end.IsZero() {
		return nil, apperrors.NewValidation("end_date", "end_date is required")
	}
	if end.Before(start) {
		return nil, apperrors.NewValidation("end_date", "end_date cannot be before start_date")
	}
	if reportType == "" {
		reportType = models.ReportTypeCustom
	}
	if !reportType.IsValid() {
		return nil, apperrors.NewValidation("report_type", "unknown report type")
	}

	payments, err := s.Store.RentPayments.GetByDueDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()

	report := &models.RentCollectionReport{
		ID:          uuid.NewString(),
		ReportType:  reportType,
		Period:      models.ReportPeriod{StartDate: start, EndDate: end},
		GeneratedAt: now,
	}

	var expected, collected float64
	for _, p := range payments {
		expected += p.Amount
		if p.Status == models.PaymentStatusPaid {
			collected += p.CollectedAmount()
		}
	}
	report.TotalExpectedRent = expected
	report.TotalCollectedRent = collected
	report.TotalOutstandingRent = expected - collected
	report.CollectionRate = collectionRate(collected, expected)
	report.TotalPayments = len(payments)

	report.PropertyBreakdown = buildPropertyBreakdown(payments)
	tenantBreakdown, err := s.buildTenantBreakdown(ctx, payments, now)
	if err != nil {
		return nil, err
	}
	report.TenantBreakdown = tenantBreakdown
	report.PaymentMethodBreakdown = buildMethodBreakdown(payments)

	if err := s.Store.Reports.Save(ctx, report); err != nil {
		return nil, err
	}

	metrics.ReportsGeneratedTotal.Inc()
	log.Printf("[Reports] Generated %s report %s for %s to %s (%d payments)",
		reportType, report.ID, start.Format(timeutil.DateLayout), end.Format(timeutil.DateLayout), len(payments))
	return report, nil
}

// collectionRate is collected/expected as a percentage, 2dp, and exactly 0
// when nothing was expected
func collectionRate(collected, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return roundTo2(collected / expected * 100)
}

func buildPropertyBreakdown(payments []*models.RentPayment) []models.PropertyCollection {
	type key struct {
		propertyID string
		unitID     string
	}
	groups := map[key]*models.PropertyCollection{}
	for _, p := range payments {
		k := key{propertyID: p.PropertyID, unitID: p.UnitID}
		g, ok := groups[k]
		if !ok {
			g = &models.PropertyCollection{
				PropertyID:   p.PropertyID,
				UnitID:       p.UnitID,
				PropertyType: p.PropertyType,
			}
			groups[k] = g
		}
		g.ExpectedRent += p.Amount
		if p.Status == models.PaymentStatusPaid {
			g.CollectedRent += p.CollectedAmount()
		}
		g.PaymentCount++
	}

	out := make([]models.PropertyCollection, 0, len(groups))
	for _, g := range groups {
		g.OutstandingRent = g.ExpectedRent - g.CollectedRent
		g.CollectionRate = collectionRate(g.CollectedRent, g.ExpectedRent)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PropertyID != out[j].PropertyID {
			return out[i].PropertyID < out[j].PropertyID
		}
		return out[i].UnitID < out[j].UnitID
	})
	return out
}

// buildTenantBreakdown groups the window by tenant. DaysPastDue reflects the
// tenant's single most-overdue obligation at generation time, so a tenant
// with three payments each 5 days late reads 5, not 15.
func (s *ReportService) buildTenantBreakdown(ctx context.Context, payments []*models.RentPayment, now time.Time) ([]models.TenantCollection, error) {
	groups := map[string]*models.TenantCollection{}
	for _, p := range payments {
		g, ok := groups[p.TenantID]
		if !ok {
			g = &models.TenantCollection{TenantID: p.TenantID}
			groups[p.TenantID] = g
		}
		g.ExpectedRent += p.Amount
		if p.Status == models.PaymentStatusPaid {
			g.CollectedRent += p.CollectedAmount()
		}
		if p.Status == models.PaymentStatusOverdue {
			if days := timeutil.DaysPastDue(now, p.DueDate); days > g.DaysPastDue {
				g.DaysPastDue = days
			}
		}
		g.Payments = append(g.Payments, *p)
	}

	out := make([]models.TenantCollection, 0, len(groups))
	for tenantID, g := range groups {
		tenant, err := s.Store.Tenants.GetByID(ctx, tenantID)
		switch {
		case err == nil:
			g.TenantName = tenant.Name
		case apperrors.IsNotFound(err):
			// tenant since removed from the directory, keep the id only
		default:
			return nil, err
		}
		g.OutstandingRent = g.ExpectedRent - g.CollectedRent
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

// buildMethodBreakdown covers paid payments only; pending money has no
// collection method yet
func buildMethodBreakdown(payments []*models.RentPayment) []models.PaymentMethodCollection {
	groups := map[models.PaymentMethod]*models.PaymentMethodCollection{}
	var grand float64
	for _, p := range payments {
		if p.Status != models.PaymentStatusPaid {
			continue
		}
		g, ok := groups[p.PaymentMethod]
		if !ok {
			g = &models.PaymentMethodCollection{Method: p.PaymentMethod}
			groups[p.PaymentMethod] = g
		}
		g.Count++
		g.TotalAmount += p.CollectedAmount()
		grand += p.CollectedAmount()
	}

	out := make([]models.PaymentMethodCollection, 0, len(groups))
	for _, g := range groups {
		if grand > 0 {
			g.Percentage = roundTo2(g.TotalAmount / grand * 100)
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// GetRentAnalytics is the dashboard variant of the report aggregation. A
// zero start or end leaves that side of the window unbounded. Responses are
// served from Redis for a few minutes; payment mutations invalidate them.
func (s *ReportService) GetRentAnalytics(ctx context.Context, start, end time.Time) (*models.RentAnalytics, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, apperrors.NewValidation("end_date", "end_date cannot be before start_date")
	}

	if data, ok := cache.GetCachedAnalytics(ctx, start, end); ok {
		var cached models.RentAnalytics
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	var payments []*models.RentPayment
	var err error
	if !start.IsZero() && !end.IsZero() {
		payments, err = s.Store.RentPayments.GetByDueDateRange(ctx, start, end)
	} else {
		payments, err = s.Store.RentPayments.GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	analytics := &models.RentAnalytics{
		Period: models.ReportPeriod{StartDate: start, EndDate: end},
	}

	properties := map[string]bool{}
	tenants := map[string]bool{}
	var expected, collected float64
	var count int
	for _, p := range payments {
		if !start.IsZero() && p.DueDate.Before(start) {
			continue
		}
		if !end.IsZero() && p.DueDate.After(end) {
			continue
		}
		count++
		expected += p.Amount
		if p.Status == models.PaymentStatusPaid {
			collected += p.CollectedAmount()
		}
		if p.PropertyID != "" {
			properties[p.PropertyID] = true
		}
		tenants[p.TenantID] = true
	}

	analytics.TotalExpectedRent = expected
	analytics.TotalCollectedRent = collected
	analytics.TotalOutstandingRent = expected - collected
	analytics.CollectionRate = collectionRate(collected, expected)
	analytics.TotalPayments = count
	analytics.TotalProperties = len(properties)
	analytics.TotalTenants = len(tenants)
	if len(properties) > 0 {
		analytics.AverageRentPerProperty = expected / float64(len(properties))
	}

	if data, err := json.Marshal(analytics); err == nil {
		cache.CacheAnalytics(ctx, start, end, data)
	}
	return analytics, nil
}

func (s *ReportService) ListCollectionReports(ctx context.Context) ([]*models.RentCollectionReport, error) {
	return s.Store.Reports.GetAll(ctx)
}

func (s *ReportService) GetCollectionReportByID(ctx context.Context, id string) (*models.RentCollectionReport, error) {
	return s.Store.Reports.GetByID(ctx, id)
}
