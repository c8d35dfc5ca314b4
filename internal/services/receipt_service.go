package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

// ReceiptService generates and serves rent receipts. A receipt is an
// immutable snapshot: tenant and property display data are copied from the
// directory at generation time and never refreshed.
type ReceiptService struct {
	Store     *repositories.Store
	Directory *DirectoryService

	nowFn func() time.Time
}

func NewReceiptService(store *repositories.Store, directory *DirectoryService) *ReceiptService {
	return &ReceiptService{
		Store:     store,
		Directory: directory,
		nowFn:     timeutil.Now,
	}
}

// GenerateRentReceipt creates the receipt for a paid payment. Calling it
// again for the same payment returns the existing receipt unchanged, so
// double-submits from the UI or webhook retries cannot produce duplicates.
// The receipt number was fixed when the payment was created.
func (s *ReceiptService) GenerateRentReceipt(ctx context.Context, paymentID string) (*models.RentReceipt, error) {
	payment, err := s.Store.RentPayments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPaid {
		return nil, apperrors.NewValidation("status", "receipts can only be generated for paid payments")
	}

	existing, err := s.Store.RentReceipts.GetByPaymentID(ctx, paymentID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	tenant, err := s.Store.Tenants.GetByID(ctx, payment.TenantID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.Directory.ResolveProperty(ctx, payment.PropertyType, payment.PropertyID, payment.UnitID)
	if err != nil {
		return nil, err
	}

	receipt := &models.RentReceipt{
		ID:              uuid.NewString(),
		ReceiptNumber:   payment.ReceiptNumber,
		PaymentID:       payment.ID,
		TenantID:        payment.TenantID,
		PropertyID:      payment.PropertyID,
		PropertyType:    payment.PropertyType,
		TenantName:      tenant.Name,
		PropertyName:    snapshot.Name,
		PropertyAddress: snapshot.Address,
		UnitLabel:       snapshot.UnitLabel,
		RentPeriod:      RentPeriodForDueDate(payment.DueDate),
		TotalAmount:     payment.CollectedAmount(),
		PaymentMethod:   payment.PaymentMethod,
		PaidDate:        *payment.PaidDate,
		GeneratedAt:     s.nowFn(),
	}

	if err := s.Store.RentReceipts.Save(ctx, receipt); err != nil {
		return nil, err
	}

	metrics.ReceiptsGeneratedTotal.Inc()
	log.Printf("[Receipts] Generated receipt %s for payment %s", receipt.ReceiptNumber, payment.ID)
	return receipt, nil
}

func (s *ReceiptService) GetRentReceiptByID(ctx context.Context, id string) (*models.RentReceipt, error) {
	return s.Store.RentReceipts.GetByID(ctx, id)
}

func (s *ReceiptService) GetRentReceiptByPaymentID(ctx context.Context, paymentID string) (*models.RentReceipt, error) {
	return s.Store.RentReceipts.GetByPaymentID(ctx, paymentID)
}

func (s *ReceiptService) ListRentReceipts(ctx context.Context) ([]*models.RentReceipt, error) {
	return s.Store.RentReceipts.GetAll(ctx)
}

// RentPeriodForDueDate derives the one-month window a payment covers. The
// period ends on the due date and starts the day after the same date one
// month earlier, with short months clamped (due Mar 31 covers Mar 1..Mar 31,
// not a February overflow).
func RentPeriodForDueDate(dueDate time.Time) models.RentPeriod {
	start := timeutil.AddMonthsClamped(dueDate, -1).AddDate(0, 0, 1)
	return models.RentPeriod{
		StartDate: timeutil.StartOfDay(start),
		EndDate:   dueDate,
	}
}
