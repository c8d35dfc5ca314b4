package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

// PaymentService owns the rent payment lifecycle: creation, status
// transitions, the overdue sweep, monthly generation and deletion with its
// receipt cascade.
type PaymentService struct {
	Store    *repositories.Store
	Receipts *ReceiptService
	Notifier *NotificationService

	// nowFn is swapped in tests to pin the clock
	nowFn func() time.Time
}

func NewPaymentService(store *repositories.Store, receipts *ReceiptService) *PaymentService {
	return &PaymentService{
		Store:    store,
		Receipts: receipts,
		nowFn:    timeutil.Now,
	}
}

// SetNotifier attaches the notification sender. Wiring happens after
// construction because notifications depend on the same store.
func (s *PaymentService) SetNotifier(n *NotificationService) {
	s.Notifier = n
}

// notifyPaymentReceived pushes the thank-you message off the request
// path. The settle has already committed; delivery is best effort.
func (s *PaymentService) notifyPaymentReceived(payment *models.RentPayment) {
	if s.Notifier == nil {
		return
	}
	p := *payment
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		tenant, err := s.Store.Tenants.GetByID(ctx, p.TenantID)
		if err != nil {
			log.Printf("[Payments] Tenant lookup for notification failed: %v", err)
			return
		}
		s.Notifier.SendPaymentReceived(ctx, tenant, &p)
	}()
}

// ensureReceipt generates the receipt for a payment that just became paid.
// Generation is idempotent, so retries and double-submits are safe. The
// payment is already persisted at this point; a directory or store hiccup
// here is logged and left for the receipts endpoint to recover, it does not
// roll back the settlement.
func (s *PaymentService) ensureReceipt(ctx context.Context, paymentID string) {
	if s.Receipts == nil {
		return
	}
	if _, err := s.Receipts.GenerateRentReceipt(ctx, paymentID); err != nil {
		log.Printf("[Payments] Receipt generation for payment %s failed: %v", paymentID, err)
	}
}

// formatReceiptNumber builds RCP-YYYYMMDD-NNNNNN from the creation date and
// a store-issued sequence value
func formatReceiptNumber(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("RCP-%s-%06d", createdAt.Format("20060102"), seq)
}

// CreateRentPayment records a new payment obligation. The receipt number is
// assigned here, exactly once; generating the printable receipt later never
// mints a new one.
func (s *PaymentService) CreateRentPayment(ctx context.Context, req *models.CreateRentPaymentRequest) (*models.RentPayment, error) {
	if req.TenantID == "" {
		return nil, apperrors.NewValidation("tenant_id", "tenant_id is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.NewValidation("amount", "amount must be greater than zero")
	}
	if req.LateFee < 0 {
		return nil, apperrors.NewValidation("late_fee", "late_fee cannot be negative")
	}
	if req.Discount < 0 {
		return nil, apperrors.NewValidation("discount", "discount cannot be negative")
	}
	if req.DueDate.IsZero() {
		return nil, apperrors.NewValidation("due_date", "due_date is required")
	}

	tenant, err := s.Store.Tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()

	payment := &models.RentPayment{
		ID:            uuid.NewString(),
		TenantID:      tenant.ID,
		PropertyID:    req.PropertyID,
		PropertyType:  req.PropertyType,
		UnitID:        req.UnitID,
		Amount:        req.Amount,
		LateFee:       req.LateFee,
		Discount:      req.Discount,
		DueDate:       req.DueDate,
		Status:        models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Fall back to the tenant's directory entry when the caller doesn't
	// pin the property explicitly
	if payment.PropertyID == "" {
		payment.PropertyID = tenant.PropertyID
		payment.PropertyType = tenant.PropertyType
		payment.UnitID = tenant.UnitID
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = tenant.RentalAgreement.PaymentMethod
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = models.PaymentMethodCash
	}

	if req.Status != "" {
		if !req.Status.IsValid() {
			return nil, apperrors.NewValidation("status", "unknown payment status")
		}
		payment.Status = req.Status
	}

	if payment.Status == models.PaymentStatusPaid {
		if req.PaidDate != nil {
			payment.PaidDate = req.PaidDate
		} else {
			paid := now
			payment.PaidDate = &paid
		}
	}

	if req.ActualAmountPaid != nil {
		if *req.ActualAmountPaid < 0 {
			return nil, apperrors.NewValidation("actual_amount_paid", "actual_amount_paid cannot be negative")
		}
		payment.ActualAmountPaid = *req.ActualAmountPaid
	} else if payment.Status == models.PaymentStatusPaid {
		payment.ActualAmountPaid = payment.DerivedActualAmount()
	}

	seq, err := s.Store.RentPayments.NextReceiptSeq(ctx)
	if err != nil {
		return nil, err
	}
	payment.ReceiptNumber = formatReceiptNumber(now, seq)

	if err := payment.Validate(); err != nil {
		return nil, err
	}

	if err := s.Store.RentPayments.Save(ctx, payment); err != nil {
		return nil, err
	}

	metrics.PaymentsRecordedTotal.WithLabelValues(string(payment.Status)).Inc()
	cache.InvalidatePaymentCaches(ctx)

	if payment.Status == models.PaymentStatusPaid {
		s.ensureReceipt(ctx, payment.ID)
		s.notifyPaymentReceived(payment)
	}
	return payment, nil
}

func (s *PaymentService) GetRentPayment(ctx context.Context, id string) (*models.RentPayment, error) {
	return s.Store.RentPayments.GetByID(ctx, id)
}

func (s *PaymentService) ListRentPayments(ctx context.Context) ([]*models.RentPayment, error) {
	return s.Store.RentPayments.GetAll(ctx)
}

func (s *PaymentService) GetPaymentsByTenant(ctx context.Context, tenantID string) ([]*models.RentPayment, error) {
	if tenantID == "" {
		return nil, apperrors.NewValidation("tenant_id", "tenant_id is required")
	}
	return s.Store.RentPayments.GetByTenant(ctx, tenantID)
}

func (s *PaymentService) GetPaymentsByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.RentPayment, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidation("status", "unknown payment status")
	}
	return s.Store.RentPayments.GetByStatus(ctx, status)
}

// UpdateRentPayment applies a partial update. Status changes must follow the
// lifecycle transition map; amounts are revalidated after patching.
func (s *PaymentService) UpdateRentPayment(ctx context.Context, id string, req *models.UpdateRentPaymentRequest) (*models.RentPayment, error) {
	payment, err := s.Store.RentPayments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPaid := payment.Status == models.PaymentStatusPaid

	if req.Status != nil && *req.Status != payment.Status {
		if !req.Status.IsValid() {
			return nil, apperrors.NewValidation("status", "unknown payment status")
		}
		if !payment.Status.CanTransitionTo(*req.Status) {
			return nil, apperrors.NewValidation("status",
				fmt.Sprintf("cannot transition from %s to %s", payment.Status, *req.Status))
		}
		payment.Status = *req.Status
	}

	if req.Amount != nil {
		payment.Amount = *req.Amount
	}
	if req.LateFee != nil {
		payment.LateFee = *req.LateFee
	}
	if req.Discount != nil {
		payment.Discount = *req.Discount
	}
	if req.DueDate != nil {
		payment.DueDate = *req.DueDate
	}
	if req.PaidDate != nil {
		payment.PaidDate = req.PaidDate
	}
	if req.PaymentMethod != nil {
		payment.PaymentMethod = *req.PaymentMethod
	}
	if req.TransactionID != nil {
		payment.TransactionID = *req.TransactionID
	}
	if req.Notes != nil {
		payment.Notes = *req.Notes
	}
	if req.ActualAmountPaid != nil {
		payment.ActualAmountPaid = *req.ActualAmountPaid
	}

	if payment.Status == models.PaymentStatusPaid && payment.PaidDate == nil {
		paid := s.nowFn()
		payment.PaidDate = &paid
	}
	if payment.Status == models.PaymentStatusPaid && req.ActualAmountPaid == nil && payment.ActualAmountPaid == 0 {
		payment.ActualAmountPaid = payment.DerivedActualAmount()
	}

	payment.UpdatedAt = s.nowFn()

	if err := payment.Validate(); err != nil {
		return nil, err
	}

	if err := s.Store.RentPayments.Update(ctx, payment); err != nil {
		return nil, err
	}

	cache.InvalidatePaymentCaches(ctx)

	if !wasPaid && payment.Status == models.PaymentStatusPaid {
		s.ensureReceipt(ctx, payment.ID)
		s.notifyPaymentReceived(payment)
	}
	return payment, nil
}

// MarkAsPaid settles an obligation. Valid from pending, overdue and partial;
// paying an already-paid record is rejected. When the caller doesn't state
// the collected amount it is derived as amount + late fee - discount,
// floored at zero.
func (s *PaymentService) MarkAsPaid(ctx context.Context, id string, req *models.MarkPaidRequest) (*models.RentPayment, error) {
	payment, err := s.Store.RentPayments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusPaid {
		return nil, apperrors.NewValidation("status", "payment is already marked as paid")
	}
	if !payment.Status.CanTransitionTo(models.PaymentStatusPaid) {
		return nil, apperrors.NewValidation("status",
			fmt.Sprintf("cannot transition from %s to %s", payment.Status, models.PaymentStatusPaid))
	}

	now := s.nowFn()

	payment.Status = models.PaymentStatusPaid
	if req.PaidDate != nil {
		payment.PaidDate = req.PaidDate
	} else {
		payment.PaidDate = &now
	}
	if req.PaymentMethod != "" {
		if !req.PaymentMethod.IsValid() {
			return nil, apperrors.NewValidation("payment_method", "unknown payment method")
		}
		payment.PaymentMethod = req.PaymentMethod
	}
	if req.TransactionID != "" {
		payment.TransactionID = req.TransactionID
	}
	if req.ActualAmountPaid != nil {
		if *req.ActualAmountPaid < 0 {
			return nil, apperrors.NewValidation("actual_amount_paid", "actual_amount_paid cannot be negative")
		}
		payment.ActualAmountPaid = *req.ActualAmountPaid
	} else {
		payment.ActualAmountPaid = payment.DerivedActualAmount()
	}
	payment.UpdatedAt = now

	if err := s.Store.RentPayments.Update(ctx, payment); err != nil {
		return nil, err
	}

	metrics.PaymentsRecordedTotal.WithLabelValues(string(models.PaymentStatusPaid)).Inc()
	cache.InvalidatePaymentCaches(ctx)

	s.ensureReceipt(ctx, payment.ID)
	s.notifyPaymentReceived(payment)
	return payment, nil
}

// MarkAsPartiallyPaid records money received against an obligation without
// settling it. Partial status is only ever set through this explicit call,
// never by a sweep.
func (s *PaymentService) MarkAsPartiallyPaid(ctx context.Context, id string, amountPaid float64) (*models.RentPayment, error) {
	if amountPaid <= 0 {
		return nil, apperrors.NewValidation("actual_amount_paid", "partial amount must be greater than zero")
	}

	payment, err := s.Store.RentPayments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !payment.Status.CanTransitionTo(models.PaymentStatusPartial) {
		return nil, apperrors.NewValidation("status",
			fmt.Sprintf("cannot transition from %s to %s", payment.Status, models.PaymentStatusPartial))
	}
	if amountPaid >= payment.DerivedActualAmount() {
		return nil, apperrors.NewValidation("actual_amount_paid", "partial amount covers the full obligation, use mark-paid instead")
	}

	payment.Status = models.PaymentStatusPartial
	payment.ActualAmountPaid = amountPaid
	payment.UpdatedAt = s.nowFn()

	if err := s.Store.RentPayments.Update(ctx, payment); err != nil {
		return nil, err
	}

	metrics.PaymentsRecordedTotal.WithLabelValues(string(models.PaymentStatusPartial)).Inc()
	cache.InvalidatePaymentCaches(ctx)
	return payment, nil
}

// DeleteRentPayment removes a payment and its receipt. The receipt goes
// first so a failure can never orphan one; archived reports that mention
// the payment stay untouched.
func (s *PaymentService) DeleteRentPayment(ctx context.Context, id string) error {
	if _, err := s.Store.RentPayments.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.Store.RentReceipts.DeleteByPaymentID(ctx, id); err != nil {
		return err
	}
	if err := s.Store.RentPayments.Delete(ctx, id); err != nil {
		return err
	}

	cache.InvalidatePaymentCaches(ctx)
	return nil
}

// UpdateOverduePayments sweeps every pending payment whose due date has
// passed into overdue. Paid and partial records are never touched. The sweep
// stops at the first store failure so a retry sees consistent state.
func (s *PaymentService) UpdateOverduePayments(ctx context.Context) (int, error) {
	pending, err := s.Store.RentPayments.GetByStatus(ctx, models.PaymentStatusPending)
	if err != nil {
		return 0, err
	}

	now := s.nowFn()
	updated := 0
	for _, payment := range pending {
		if !payment.DueDate.Before(now) {
			continue
		}
		payment.Status = models.PaymentStatusOverdue
		payment.UpdatedAt = now
		if err := s.Store.RentPayments.Update(ctx, payment); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		log.Printf("[Payments] Overdue sweep marked %d payment(s)", updated)
		cache.InvalidatePaymentCaches(ctx)
	}
	return updated, nil
}

// ApplyLateFees adds the configured flat fee to overdue payments that have
// been late longer than the grace period and don't carry a fee yet. Fees are
// applied once per obligation; a second run is a no-op.
func (s *PaymentService) ApplyLateFees(ctx context.Context, flatAmount float64, graceDays int) (int, error) {
	if flatAmount <= 0 {
		return 0, nil
	}

	overdue, err := s.Store.RentPayments.GetByStatus(ctx, models.PaymentStatusOverdue)
	if err != nil {
		return 0, err
	}

	now := s.nowFn()
	applied := 0
	for _, payment := range overdue {
		if payment.LateFee > 0 {
			continue
		}
		if timeutil.DaysPastDue(now, payment.DueDate) <= graceDays {
			continue
		}
		payment.LateFee = flatAmount
		payment.UpdatedAt = now
		if err := s.Store.RentPayments.Update(ctx, payment); err != nil {
			return applied, err
		}
		applied++
	}

	if applied > 0 {
		log.Printf("[Payments] Applied late fee of Rs. %.2f to %d payment(s)", flatAmount, applied)
		cache.InvalidatePaymentCaches(ctx)
	}
	return applied, nil
}

// GenerateMonthlyRentPayments creates one pending obligation per active
// tenant for the given month. A tenant already holding any payment due in
// that month is skipped, so reruns are safe. The agreement's due day is
// clamped into the month (31st -> Feb 28/29).
func (s *PaymentService) GenerateMonthlyRentPayments(ctx context.Context, month time.Month, year int) ([]*models.RentPayment, error) {
	if month < time.January || month > time.December {
		return nil, apperrors.NewValidation("month", "month must be between 1 and 12")
	}
	if year < 1970 {
		return nil, apperrors.NewValidation("year", "year is out of range")
	}

	tenants, err := s.Store.Tenants.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	var created []*models.RentPayment
	for _, tenant := range tenants {
		if !tenant.IsActive || !tenant.HasResolvableProperty() {
			continue
		}
		if tenant.RentalAgreement.RentAmount <= 0 {
			continue
		}

		existing, err := s.Store.RentPayments.GetByTenant(ctx, tenant.ID)
		if err != nil {
			return created, err
		}
		alreadyBilled := false
		for _, p := range existing {
			if p.DueDate.Year() == year && p.DueDate.Month() == month {
				alreadyBilled = true
				break
			}
		}
		if alreadyBilled {
			continue
		}

		dueDate := timeutil.DueDayInMonth(year, month, tenant.RentalAgreement.RentDueDate)

		method := tenant.RentalAgreement.PaymentMethod
		if method == "" {
			method = models.PaymentMethodCash
		}

		seq, err := s.Store.RentPayments.NextReceiptSeq(ctx)
		if err != nil {
			return created, err
		}

		payment := &models.RentPayment{
			ID:            uuid.NewString(),
			TenantID:      tenant.ID,
			PropertyID:    tenant.PropertyID,
			PropertyType:  tenant.PropertyType,
			UnitID:        tenant.UnitID,
			Amount:        tenant.RentalAgreement.RentAmount,
			DueDate:       dueDate,
			Status:        models.PaymentStatusPending,
			PaymentMethod: method,
			ReceiptNumber: formatReceiptNumber(now, seq),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.Store.RentPayments.Save(ctx, payment); err != nil {
			return created, err
		}
		metrics.PaymentsRecordedTotal.WithLabelValues(string(payment.Status)).Inc()
		created = append(created, payment)
	}

	if len(created) > 0 {
		log.Printf("[Payments] Generated %d payment(s) for %04d-%02d", len(created), year, month)
		cache.InvalidatePaymentCaches(ctx)
	}
	return created, nil
}

// GetUpcomingPayments returns pending payments due between today and
// daysAhead days out, inclusive on both ends. Overdue payments are already
// past due and never show here.
func (s *PaymentService) GetUpcomingPayments(ctx context.Context, daysAhead int) ([]*models.RentPayment, error) {
	if daysAhead < 0 {
		return nil, apperrors.NewValidation("days_ahead", "days_ahead cannot be negative")
	}

	start := timeutil.StartOfDay(s.nowFn())
	end := timeutil.EndOfDay(start.AddDate(0, 0, daysAhead))

	window, err := s.Store.RentPayments.GetByDueDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	upcoming := make([]*models.RentPayment, 0, len(window))
	for _, p := range window {
		if p.Status == models.PaymentStatusPending {
			upcoming = append(upcoming, p)
		}
	}
	return upcoming, nil
}

func (s *PaymentService) GetOverduePayments(ctx context.Context) ([]*models.RentPayment, error) {
	return s.Store.RentPayments.GetByStatus(ctx, models.PaymentStatusOverdue)
}
