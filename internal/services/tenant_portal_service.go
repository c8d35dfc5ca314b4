package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/sms"
	"rentledger-backend/internal/timeutil"
)

const (
	otpLength        = 6
	otpExpiryMinutes = 5
	maxOTPAttempts   = 3
	otpCooldown      = time.Minute
	maxOTPPerDay     = 10
)

// TenantPortalService backs the tenant-facing surface: OTP login by
// phone, the dashboard, and the tenant's own payment and receipt views.
type TenantPortalService struct {
	Store      *repositories.Store
	JWTManager *auth.JWTManager
	Primary    sms.Provider
	Fallback   sms.Provider

	nowFn func() time.Time
}

func NewTenantPortalService(store *repositories.Store, jwtManager *auth.JWTManager, primary, fallback sms.Provider) *TenantPortalService {
	if fallback == nil {
		fallback = sms.NewMock()
	}
	return &TenantPortalService{
		Store:      store,
		JWTManager: jwtManager,
		Primary:    primary,
		Fallback:   fallback,
		nowFn:      timeutil.Now,
	}
}

// generateOTP creates a secure 6-digit code
func generateOTP() string {
	max := big.NewInt(999999)
	n, _ := rand.Int(rand.Reader, max)
	return fmt.Sprintf("%0*d", otpLength, n.Int64())
}

// RequestLoginOTP issues a login code to a registered tenant's phone.
// The code is throttled per phone so a mistyped number cannot drain the
// SMS budget.
func (s *TenantPortalService) RequestLoginOTP(ctx context.Context, phone, ipAddress string) error {
	if phone == "" {
		return apperrors.NewValidation("phone", "phone is required")
	}

	tenant, err := s.Store.Tenants.GetByPhone(ctx, phone)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidation("phone", "no tenant account with this phone number")
		}
		return err
	}
	if !tenant.IsActive {
		return apperrors.NewValidation("phone", "this tenant account is inactive")
	}

	recent, err := s.Store.TenantOTPs.CountRecentRequests(ctx, phone, otpCooldown)
	if err != nil {
		return err
	}
	if recent > 0 {
		return apperrors.NewValidation("phone", "please wait a minute before requesting another code")
	}
	daily, err := s.Store.TenantOTPs.CountRecentRequests(ctx, phone, 24*time.Hour)
	if err != nil {
		return err
	}
	if daily >= maxOTPPerDay {
		return apperrors.NewValidation("phone", "daily login code limit reached, please try again tomorrow")
	}

	now := s.nowFn()
	code := generateOTP()
	otp := &models.TenantOTP{
		ID:        uuid.NewString(),
		Phone:     phone,
		OTPCode:   code,
		ExpiresAt: now.Add(otpExpiryMinutes * time.Minute),
		IPAddress: ipAddress,
		CreatedAt: now,
	}
	if err := s.Store.TenantOTPs.Create(ctx, otp); err != nil {
		return fmt.Errorf("failed to create login code: %w", err)
	}

	message := fmt.Sprintf("Your RentLedger login code is %s. Valid for %d minutes. Do not share it with anyone.", code, otpExpiryMinutes)
	if err := s.deliverOTP(ctx, tenant, message); err != nil {
		return fmt.Errorf("failed to send login code: %w", err)
	}
	log.Printf("[Portal] Login code sent to tenant %s", tenant.ID)
	return nil
}

// VerifyLoginOTP checks a code and exchanges it for a portal session.
func (s *TenantPortalService) VerifyLoginOTP(ctx context.Context, req *models.PortalVerifyRequest) (*models.PortalAuthResponse, error) {
	if req.Phone == "" || req.Code == "" {
		return nil, apperrors.NewValidation("code", "phone and code are required")
	}

	otp, err := s.Store.TenantOTPs.GetLatestByPhone(ctx, req.Phone)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidation("code", "no login code found for this phone number")
		}
		return nil, err
	}

	if s.nowFn().After(otp.ExpiresAt) {
		return nil, apperrors.NewValidation("code", "login code has expired, please request a new one")
	}
	if otp.Verified {
		return nil, apperrors.NewValidation("code", "login code has already been used, please request a new one")
	}
	if otp.Attempts >= maxOTPAttempts {
		return nil, apperrors.NewValidation("code", "too many attempts, please request a new code")
	}

	if err := s.Store.TenantOTPs.IncrementAttempts(ctx, otp.ID); err != nil {
		log.Printf("[Portal] Failed to record code attempt: %v", err)
	}
	if otp.OTPCode != req.Code {
		return nil, apperrors.NewValidation("code", "invalid login code")
	}
	if err := s.Store.TenantOTPs.MarkVerified(ctx, otp.ID); err != nil {
		log.Printf("[Portal] Failed to mark code verified: %v", err)
	}

	tenant, err := s.Store.Tenants.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	token, err := s.JWTManager.GenerateTenantToken(tenant, req.RememberMe)
	if err != nil {
		return nil, err
	}
	log.Printf("[Portal] Tenant %s logged in", tenant.ID)
	return &models.PortalAuthResponse{Token: token, Tenant: tenant}, nil
}

// PortalDashboard is the tenant's home screen payload
type PortalDashboard struct {
	Tenant           *models.Tenant          `json:"tenant"`
	Payments         []*models.RentPayment   `json:"payments"`
	TotalPaid        float64                 `json:"total_paid"`
	TotalOutstanding float64                 `json:"total_outstanding"`
	OverdueCount     int                     `json:"overdue_count"`
	NextDue          *models.RentPayment     `json:"next_due,omitempty"`
	Deposit          *models.SecurityDeposit `json:"deposit,omitempty"`
}

// GetDashboard assembles the tenant's position: payment history, what is
// owed, the next due date and the deposit state.
func (s *TenantPortalService) GetDashboard(ctx context.Context, tenantID string) (*PortalDashboard, error) {
	tenant, err := s.Store.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	payments, err := s.Store.RentPayments.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].DueDate.After(payments[j].DueDate) })

	dash := &PortalDashboard{
		Tenant:   tenant,
		Payments: payments,
	}
	for _, p := range payments {
		switch p.Status {
		case models.PaymentStatusPaid:
			dash.TotalPaid += p.CollectedAmount()
		case models.PaymentStatusPartial:
			dash.TotalPaid += p.ActualAmountPaid
			if due := p.DerivedActualAmount() - p.ActualAmountPaid; due > 0 {
				dash.TotalOutstanding += due
			}
		case models.PaymentStatusPending, models.PaymentStatusOverdue:
			dash.TotalOutstanding += p.DerivedActualAmount()
			if p.Status == models.PaymentStatusOverdue {
				dash.OverdueCount++
			}
			if dash.NextDue == nil || p.DueDate.Before(dash.NextDue.DueDate) {
				dash.NextDue = p
			}
		}
	}

	deposit, err := s.Store.Deposits.GetByTenantID(ctx, tenantID)
	if err == nil {
		dash.Deposit = deposit
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return dash, nil
}

// ListOwnPayments returns the tenant's payments, newest due first.
func (s *TenantPortalService) ListOwnPayments(ctx context.Context, tenantID string) ([]*models.RentPayment, error) {
	payments, err := s.Store.RentPayments.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].DueDate.After(payments[j].DueDate) })
	return payments, nil
}

// ListOwnReceipts returns the tenant's receipts, newest first.
func (s *TenantPortalService) ListOwnReceipts(ctx context.Context, tenantID string) ([]*models.RentReceipt, error) {
	all, err := s.Store.RentReceipts.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.RentReceipt
	for _, rc := range all {
		if rc.TenantID == tenantID {
			out = append(out, rc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

// GetOwnReceipt returns one receipt, refusing another tenant's.
func (s *TenantPortalService) GetOwnReceipt(ctx context.Context, tenantID, receiptID string) (*models.RentReceipt, error) {
	receipt, err := s.Store.RentReceipts.GetByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.TenantID != tenantID {
		return nil, apperrors.NewNotFound("receipt", receiptID)
	}
	return receipt, nil
}

// deliverOTP pushes the code through the provider chain and records the
// attempt. Unlike courtesy notifications, a failed delivery is an error;
// the tenant cannot log in without the code.
func (s *TenantPortalService) deliverOTP(ctx context.Context, tenant *models.Tenant, message string) error {
	entry := &models.SMSLog{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		Phone:       tenant.Phone,
		MessageType: models.SMSTypeLoginOTP,
		Message:     message,
		Status:      models.SMSStatusPending,
		CreatedAt:   s.nowFn(),
	}

	var sendErr error
	if s.Primary != nil {
		entry.Cost = s.Primary.Cost()
		sendErr = s.Primary.Send(ctx, tenant.Phone, message)
		if sendErr != nil {
			log.Printf("[Portal] Primary provider failed for %s, falling back to SMS: %v", tenant.Phone, sendErr)
		}
	}
	if s.Primary == nil || sendErr != nil {
		entry.Cost = s.Fallback.Cost()
		sendErr = s.Fallback.Send(ctx, tenant.Phone, message)
	}

	if sendErr != nil {
		entry.Status = models.SMSStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		entry.Status = models.SMSStatusSent
		now := s.nowFn()
		entry.DeliveredAt = &now
	}
	metrics.SMSSentTotal.WithLabelValues(models.SMSTypeLoginOTP, entry.Status).Inc()

	if err := s.Store.SMSLogs.Create(ctx, entry); err != nil {
		log.Printf("[Portal] Failed to record message log: %v", err)
	}
	return sendErr
}
