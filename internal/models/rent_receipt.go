package models

import "time"

// RentPeriod is the one-month window a payment covers, ending at its due date
type RentPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// RentReceipt is the immutable artifact of a completed payment. Tenant and
// property display data are snapshots taken at generation time; at most one
// receipt exists per payment.
type RentReceipt struct {
	ID              string        `json:"id"`
	ReceiptNumber   string        `json:"receipt_number"`
	PaymentID       string        `json:"payment_id"`
	TenantID        string        `json:"tenant_id"`
	PropertyID      string        `json:"property_id"`
	PropertyType    PropertyType  `json:"property_type"`
	TenantName      string        `json:"tenant_name"`
	PropertyName    string        `json:"property_name"`
	PropertyAddress string        `json:"property_address"`
	UnitLabel       string        `json:"unit_label,omitempty"`
	RentPeriod      RentPeriod    `json:"rent_period"`
	TotalAmount     float64       `json:"total_amount"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaidDate        time.Time     `json:"paid_date"`
	GeneratedAt     time.Time     `json:"generated_at"`
}
