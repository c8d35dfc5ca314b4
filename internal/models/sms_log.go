package models

import "time"

// SMSLog represents a sent notification message
type SMSLog struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id,omitempty"`
	TenantName   string     `json:"tenant_name,omitempty"`
	Phone        string     `json:"phone"`
	MessageType  string     `json:"message_type"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ReferenceID  string     `json:"reference_id,omitempty"` // linked payment id
	Cost         float64    `json:"cost,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// SMS message types
const (
	SMSTypePaymentReceived = "payment_received"
	SMSTypePaymentReminder = "payment_reminder"
	SMSTypeOverdueNotice   = "overdue_notice"
	SMSTypeDepositRefund   = "deposit_refund"
	SMSTypeLoginOTP        = "login_otp"
)

// SMS status types
const (
	SMSStatusPending = "pending"
	SMSStatusSent    = "sent"
	SMSStatusFailed  = "failed"
)
