package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/metrics"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/sms"
	"rentledger-backend/internal/timeutil"
)

// NotificationService composes tenant-facing messages and pushes them
// through the configured providers, WhatsApp first when available, SMS
// as fallback. Every attempt lands in the message log regardless of
// outcome.
type NotificationService struct {
	Store    *repositories.Store
	Primary  sms.Provider // WhatsApp when configured, else nil
	Fallback sms.Provider // plain SMS, or the mock when unconfigured

	nowFn func() time.Time
}

func NewNotificationService(store *repositories.Store, primary, fallback sms.Provider) *NotificationService {
	if fallback == nil {
		fallback = sms.NewMock()
	}
	return &NotificationService{
		Store:    store,
		Primary:  primary,
		Fallback: fallback,
		nowFn:    timeutil.Now,
	}
}

// SendPaymentReceived thanks the tenant after a payment settles.
func (s *NotificationService) SendPaymentReceived(ctx context.Context, tenant *models.Tenant, payment *models.RentPayment) error {
	message := fmt.Sprintf(
		"Rent payment of Rs. %.2f received for %s. Receipt no: %s. Thank you.",
		payment.CollectedAmount(),
		payment.DueDate.In(timeutil.IST).Format("Jan 2006"),
		payment.ReceiptNumber,
	)
	return s.send(ctx, tenant, models.SMSTypePaymentReceived, message, payment.ID)
}

// SendPaymentReminder nudges the tenant ahead of the due date.
func (s *NotificationService) SendPaymentReminder(ctx context.Context, tenant *models.Tenant, payment *models.RentPayment) error {
	message := fmt.Sprintf(
		"Rent of Rs. %.2f for %s is due on %s. Please pay on time to avoid late fees.",
		payment.Amount,
		payment.DueDate.In(timeutil.IST).Format("Jan 2006"),
		payment.DueDate.In(timeutil.IST).Format("02 Jan"),
	)
	return s.send(ctx, tenant, models.SMSTypePaymentReminder, message, payment.ID)
}

// SendOverdueNotice tells the tenant a payment has slipped past due.
func (s *NotificationService) SendOverdueNotice(ctx context.Context, tenant *models.Tenant, payment *models.RentPayment) error {
	days := timeutil.DaysPastDue(s.nowFn(), payment.DueDate)
	message := fmt.Sprintf(
		"Rent of Rs. %.2f for %s is overdue by %d day(s). Please pay at the earliest.",
		payment.Amount,
		payment.DueDate.In(timeutil.IST).Format("Jan 2006"),
		days,
	)
	if payment.LateFee > 0 {
		message += fmt.Sprintf(" A late fee of Rs. %.2f has been applied.", payment.LateFee)
	}
	return s.send(ctx, tenant, models.SMSTypeOverdueNotice, message, payment.ID)
}

// SendDepositRefund confirms a security deposit refund.
func (s *NotificationService) SendDepositRefund(ctx context.Context, tenant *models.Tenant, deposit *models.SecurityDeposit) error {
	amount := deposit.Amount
	if deposit.RefundAmount != nil {
		amount = *deposit.RefundAmount
	}
	message := fmt.Sprintf(
		"Your security deposit refund of Rs. %.2f has been processed. Thank you for staying with us.",
		amount,
	)
	return s.send(ctx, tenant, models.SMSTypeDepositRefund, message, deposit.ID)
}

// ListLogs returns recent messages, newest first.
func (s *NotificationService) ListLogs(ctx context.Context, limit int) ([]*models.SMSLog, error) {
	return s.Store.SMSLogs.List(ctx, limit)
}

// send runs the provider chain and records the attempt. Provider errors
// are logged, not returned; a lost notification never fails the business
// operation that triggered it.
func (s *NotificationService) send(ctx context.Context, tenant *models.Tenant, messageType, message, referenceID string) error {
	if tenant == nil || tenant.Phone == "" {
		log.Printf("[Notify] Skipping %s message, tenant has no phone number", messageType)
		return nil
	}

	entry := &models.SMSLog{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		Phone:       tenant.Phone,
		MessageType: messageType,
		Message:     message,
		Status:      models.SMSStatusPending,
		ReferenceID: referenceID,
		CreatedAt:   s.nowFn(),
	}

	var sendErr error
	if s.Primary != nil {
		entry.Cost = s.Primary.Cost()
		sendErr = s.Primary.Send(ctx, tenant.Phone, message)
		if sendErr != nil {
			log.Printf("[Notify] Primary provider failed for %s, falling back to SMS: %v", tenant.Phone, sendErr)
		}
	}
	if s.Primary == nil || sendErr != nil {
		entry.Cost = s.Fallback.Cost()
		sendErr = s.Fallback.Send(ctx, tenant.Phone, message)
	}

	if sendErr != nil {
		entry.Status = models.SMSStatusFailed
		entry.ErrorMessage = sendErr.Error()
		log.Printf("[Notify] Failed to send %s message to %s: %v", messageType, tenant.Phone, sendErr)
	} else {
		entry.Status = models.SMSStatusSent
		now := s.nowFn()
		entry.DeliveredAt = &now
	}
	metrics.SMSSentTotal.WithLabelValues(messageType, entry.Status).Inc()

	if err := s.Store.SMSLogs.Create(ctx, entry); err != nil {
		log.Printf("[Notify] Failed to record message log: %v", err)
	}
	return nil
}
