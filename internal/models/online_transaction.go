package models

import "time"

// OnlineTransactionStatus represents the status of an online payment
type OnlineTransactionStatus string

const (
	OnlineTxStatusPending  OnlineTransactionStatus = "pending"
	OnlineTxStatusSuccess  OnlineTransactionStatus = "success"
	OnlineTxStatusFailed   OnlineTransactionStatus = "failed"
	OnlineTxStatusRefunded OnlineTransactionStatus = "refunded"
)

// OnlineTransaction represents a Razorpay checkout for a rent payment
type OnlineTransaction struct {
	ID                string `json:"id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string `json:"-"` // Don't expose signature in JSON

	// Tenant info
	TenantID    string `json:"tenant_id"`
	TenantPhone string `json:"tenant_phone"`
	TenantName  string `json:"tenant_name"`

	// The ledger obligation this checkout settles
	RentPaymentID string `json:"rent_payment_id"`

	// Amounts (in rupees)
	Amount      float64 `json:"amount"`       // Outstanding rent amount
	FeeAmount   float64 `json:"fee_amount"`   // Convenience fee
	TotalAmount float64 `json:"total_amount"` // What the tenant pays (amount + fee)

	// Payment details from Razorpay
	UTRNumber     string `json:"utr_number,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"` // upi, card, netbanking, wallet
	Bank          string `json:"bank,omitempty"`
	VPA           string `json:"vpa,omitempty"` // UPI ID
	CardLast4     string `json:"card_last4,omitempty"`
	CardNetwork   string `json:"card_network,omitempty"`

	// Status
	Status        OnlineTransactionStatus `json:"status"`
	FailureReason string                  `json:"failure_reason,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateCheckoutRequest initiates an online payment for a ledger obligation
type CreateCheckoutRequest struct {
	RentPaymentID string `json:"rent_payment_id"`
}

// CreateOrderResponse is returned to the frontend for Razorpay checkout
type CreateOrderResponse struct {
	OrderID     string  `json:"order_id"`
	Amount      int     `json:"amount"`       // In paise
	FeeAmount   int     `json:"fee_amount"`   // In paise
	TotalAmount int     `json:"total_amount"` // In paise
	Currency    string  `json:"currency"`
	KeyID       string  `json:"key_id"`
	TenantName  string  `json:"tenant_name"`
	TenantPhone string  `json:"tenant_phone"`
	FeePercent  float64 `json:"fee_percent"`
}

// VerifyPaymentRequest is sent from the frontend after the Razorpay callback
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// PaymentStatusResponse reports whether online payments are enabled
type PaymentStatusResponse struct {
	Enabled    bool    `json:"enabled"`
	FeePercent float64 `json:"fee_percent"`
	KeyID      string  `json:"key_id,omitempty"`
}

// RazorpayWebhookPayload represents the webhook payload from Razorpay
type RazorpayWebhookPayload struct {
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt int64                  `json:"created_at"`
}
