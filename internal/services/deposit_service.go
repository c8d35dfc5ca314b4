package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

// DepositService tracks security deposits from move-in through refund or
// forfeiture. Deposit records are never deleted; refunded and forfeited are
// terminal states kept for the audit trail.
type DepositService struct {
	Store     *repositories.Store
	Directory *DirectoryService
	Notifier  *NotificationService

	nowFn func() time.Time
}

func NewDepositService(store *repositories.Store, directory *DirectoryService) *DepositService {
	return &DepositService{
		Store:     store,
		Directory: directory,
		nowFn:     timeutil.Now,
	}
}

// SetNotifier attaches the notification sender.
func (s *DepositService) SetNotifier(n *NotificationService) {
	s.Notifier = n
}

// notifyDepositRefund pushes the refund confirmation off the request
// path, best effort.
func (s *DepositService) notifyDepositRefund(deposit *models.SecurityDeposit) {
	if s.Notifier == nil {
		return
	}
	d := *deposit
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		tenant, err := s.Store.Tenants.GetByID(ctx, d.TenantID)
		if err != nil {
			log.Printf("[Deposits] Tenant lookup for notification failed: %v", err)
			return
		}
		s.Notifier.SendDepositRefund(ctx, tenant, &d)
	}()
}

// RecordSecurityDeposit opens a held deposit for a tenant. A tenant can hold
// at most one active deposit at a time.
func (s *DepositService) RecordSecurityDeposit(ctx context.Context, tenantID, propertyID string, amount float64, paidDate time.Time) (*models.SecurityDeposit, error) {
	if tenantID == "" {
		return nil, apperrors.NewValidation("tenant_id", "tenant_id is required")
	}
	if amount <= 0 {
		return nil, apperrors.NewValidation("amount", "amount must be greater than zero")
	}

	tenant, err := s.Store.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if propertyID == "" {
		propertyID = tenant.PropertyID
	}

	existing, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
	if err == nil && existing.Status == models.DepositStatusHeld {
		return nil, apperrors.NewValidation("tenant_id", "tenant already has a held security deposit")
	}
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	now := s.nowFn()
	if paidDate.IsZero() {
		paidDate = now
	}

	deposit := &models.SecurityDeposit{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		PropertyID: propertyID,
		Amount:     amount,
		PaidDate:   paidDate,
		Status:     models.DepositStatusHeld,
		Deductions: []models.SecurityDepositDeduction{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Store.Deposits.Save(ctx, deposit); err != nil {
		return nil, err
	}
	cache.InvalidateDepositCaches(ctx)
	log.Printf("[Deposits] Recorded deposit of %.2f for tenant %s", amount, tenantID)
	return deposit, nil
}

func (s *DepositService) GetSecurityDepositByTenant(ctx context.Context, tenantID string) (*models.SecurityDeposit, error) {
	return s.Store.Deposits.GetByTenantID(ctx, tenantID)
}

func (s *DepositService) GetSecurityDepositByID(ctx context.Context, id string) (*models.SecurityDeposit, error) {
	return s.Store.Deposits.GetByID(ctx, id)
}

func (s *DepositService) ListSecurityDeposits(ctx context.Context) ([]*models.SecurityDeposit, error) {
	return s.Store.Deposits.GetAll(ctx)
}

// AddSecurityDepositDeduction appends a charge against the tenant's held
// deposit. Deductions are append-only; correcting a mistake means recording
// a compensating entry, not editing history.
func (s *DepositService) AddSecurityDepositDeduction(ctx context.Context, tenantID string, req *models.AddDeductionRequest) (*models.SecurityDeposit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	deposit, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositStatusHeld {
		return nil, apperrors.NewValidation("status", "deductions can only be recorded against a held deposit")
	}

	now := s.nowFn()
	date := now
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}

	deposit.Deductions = append(deposit.Deductions, models.SecurityDepositDeduction{
		ID:          uuid.NewString(),
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		Documents:   req.Documents,
	})
	deposit.UpdatedAt = now

	if err := s.Store.Deposits.Update(ctx, deposit); err != nil {
		return nil, err
	}
	cache.InvalidateDepositCaches(ctx)
	return deposit, nil
}

// RefundSecurityDeposit closes out a held deposit. The refund cannot exceed
// the deposit minus recorded deductions, and a deposit that already reached
// a terminal state cannot be refunded again.
func (s *DepositService) RefundSecurityDeposit(ctx context.Context, tenantID string, refundAmount float64, notes string) (*models.SecurityDeposit, error) {
	deposit, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositStatusHeld {
		return nil, apperrors.NewValidation("status", "deposit is not held and cannot be refunded")
	}
	if refundAmount < 0 {
		return nil, apperrors.NewValidation("refund_amount", "refund amount cannot be negative")
	}
	if refundable := deposit.RefundableAmount(); refundAmount > refundable {
		return nil, apperrors.NewValidation("refund_amount", "refund amount exceeds the refundable balance")
	}

	now := s.nowFn()
	deposit.Status = models.DepositStatusRefunded
	deposit.RefundDate = &now
	deposit.RefundAmount = &refundAmount
	deposit.RefundNotes = notes
	deposit.UpdatedAt = now

	if err := s.Store.Deposits.Update(ctx, deposit); err != nil {
		return nil, err
	}
	cache.InvalidateDepositCaches(ctx)
	log.Printf("[Deposits] Refunded %.2f to tenant %s", refundAmount, tenantID)
	s.notifyDepositRefund(deposit)
	return deposit, nil
}

// ForfeitSecurityDeposit marks a held deposit as kept by the operator, with
// the reason recorded for the audit trail.
func (s *DepositService) ForfeitSecurityDeposit(ctx context.Context, tenantID, reason string) (*models.SecurityDeposit, error) {
	if reason == "" {
		return nil, apperrors.NewValidation("reason", "reason is required")
	}

	deposit, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositStatusHeld {
		return nil, apperrors.NewValidation("status", "deposit is not held and cannot be forfeited")
	}

	now := s.nowFn()
	deposit.Status = models.DepositStatusForfeited
	deposit.RefundNotes = reason
	deposit.UpdatedAt = now

	if err := s.Store.Deposits.Update(ctx, deposit); err != nil {
		return nil, err
	}
	cache.InvalidateDepositCaches(ctx)
	log.Printf("[Deposits] Forfeited deposit for tenant %s: %s", tenantID, reason)
	return deposit, nil
}

// ProcessTenantMoveIn activates the tenant, marks their unit occupied and
// opens a deposit when the rental agreement calls for one. Running it again
// for an already moved-in tenant is harmless.
func (s *DepositService) ProcessTenantMoveIn(ctx context.Context, tenantID string, moveInDate time.Time) (*models.Tenant, error) {
	tenant, err := s.Store.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	if moveInDate.IsZero() {
		moveInDate = now
	}

	tenant.IsActive = true
	tenant.MoveInDate = moveInDate
	tenant.MoveOutDate = nil
	tenant.UpdatedAt = now
	if err := s.Store.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}

	if tenant.HasResolvableProperty() {
		if err := s.Directory.SetUnitOccupancy(ctx, tenant.PropertyType, tenant.PropertyID, tenant.UnitID, true, tenant.ID); err != nil {
			return nil, err
		}
	}

	if deposit := tenant.RentalAgreement.SecurityDeposit; deposit > 0 {
		existing, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
		switch {
		case err == nil && existing.Status == models.DepositStatusHeld:
			// already holding one, nothing to record
		case err == nil || apperrors.IsNotFound(err):
			if _, err := s.RecordSecurityDeposit(ctx, tenantID, tenant.PropertyID, deposit, moveInDate); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	cache.InvalidateTenantCaches(ctx)
	log.Printf("[Deposits] Move-in completed for tenant %s", tenantID)
	return tenant, nil
}

// ProcessTenantMoveOut deactivates the tenant and frees their unit. The
// deposit stays held; refund or forfeiture is a separate decision made after
// inspection.
func (s *DepositService) ProcessTenantMoveOut(ctx context.Context, tenantID string, moveOutDate time.Time) (*models.Tenant, error) {
	tenant, err := s.Store.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	if moveOutDate.IsZero() {
		moveOutDate = now
	}

	tenant.IsActive = false
	tenant.MoveOutDate = &moveOutDate
	tenant.UpdatedAt = now
	if err := s.Store.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}

	if tenant.HasResolvableProperty() {
		if err := s.Directory.SetUnitOccupancy(ctx, tenant.PropertyType, tenant.PropertyID, tenant.UnitID, false, ""); err != nil {
			return nil, err
		}
	}

	cache.InvalidateTenantCaches(ctx)
	log.Printf("[Deposits] Move-out completed for tenant %s", tenantID)
	return tenant, nil
}
