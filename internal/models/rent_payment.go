package models

import (
	"time"

	"rentledger-backend/internal/apperrors"
)

// PaymentStatus represents the lifecycle state of a rent payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
	PaymentStatusPartial PaymentStatus = "partial"
)

// PaymentMethod represents how a rent payment was settled
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCard         PaymentMethod = "card"
)

// validTransitions defines the allowed status changes. Paid is terminal;
// partial is only ever set manually, never derived.
var validTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusPartial},
	PaymentStatusOverdue: {PaymentStatusPaid, PaymentStatusPartial},
	PaymentStatusPartial: {PaymentStatusPaid},
	PaymentStatusPaid:    {},
}

// CanTransitionTo checks whether a status change is allowed
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status
func (s PaymentStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsValid reports whether the status is one of the known values
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusPartial:
		return true
	}
	return false
}

// IsValid reports whether the method is one of the known values
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodUPI, PaymentMethodCard:
		return true
	}
	return false
}

// RentPayment is one rent obligation/settlement record
type RentPayment struct {
	ID               string        `json:"id"`
	TenantID         string        `json:"tenant_id"`
	PropertyID       string        `json:"property_id"`
	PropertyType     PropertyType  `json:"property_type"`
	UnitID           string        `json:"unit_id,omitempty"` // sub-unit within a building
	Amount           float64       `json:"amount"`
	LateFee          float64       `json:"late_fee"`
	Discount         float64       `json:"discount"`
	ActualAmountPaid float64       `json:"actual_amount_paid,omitempty"`
	DueDate          time.Time     `json:"due_date"`
	PaidDate         *time.Time    `json:"paid_date,omitempty"`
	Status           PaymentStatus `json:"status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	TransactionID    string        `json:"transaction_id,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	ReceiptNumber    string        `json:"receipt_number"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// DerivedActualAmount computes what the tenant actually owes for this
// obligation: amount + late fee - discount, floored at zero
func (p *RentPayment) DerivedActualAmount() float64 {
	total := p.Amount + p.LateFee - p.Discount
	if total < 0 {
		return 0
	}
	return total
}

// CollectedAmount is the amount the payment contributed to collections:
// actualAmountPaid when recorded, otherwise the expected amount
func (p *RentPayment) CollectedAmount() float64 {
	if p.ActualAmountPaid > 0 {
		return p.ActualAmountPaid
	}
	return p.Amount
}

// Validate checks the record's invariants
func (p *RentPayment) Validate() error {
	if p.TenantID == "" {
		return apperrors.NewValidation("tenant_id", "tenant id is required")
	}
	if p.PropertyID == "" {
		return apperrors.NewValidation("property_id", "property id is required")
	}
	if !p.PropertyType.IsValid() {
		return apperrors.NewValidation("property_type", "must be building, flat or land")
	}
	if p.Amount <= 0 {
		return apperrors.NewValidation("amount", "must be greater than zero")
	}
	if p.LateFee < 0 {
		return apperrors.NewValidation("late_fee", "cannot be negative")
	}
	if p.Discount < 0 {
		return apperrors.NewValidation("discount", "cannot be negative")
	}
	if p.DueDate.IsZero() {
		return apperrors.NewValidation("due_date", "due date is required")
	}
	if !p.Status.IsValid() {
		return apperrors.NewValidation("status", "unknown payment status")
	}
	if !p.PaymentMethod.IsValid() {
		return apperrors.NewValidation("payment_method", "unknown payment method")
	}
	if p.Status == PaymentStatusPaid && p.PaidDate == nil {
		return apperrors.NewValidation("paid_date", "paid payments must carry a paid date")
	}
	return nil
}

// CreateRentPaymentRequest represents the request body for recording a payment
type CreateRentPaymentRequest struct {
	TenantID         string        `json:"tenant_id"`
	PropertyID       string        `json:"property_id"`
	PropertyType     PropertyType  `json:"property_type"`
	UnitID           string        `json:"unit_id,omitempty"`
	Amount           float64       `json:"amount"`
	LateFee          float64       `json:"late_fee"`
	Discount         float64       `json:"discount"`
	ActualAmountPaid *float64      `json:"actual_amount_paid,omitempty"`
	DueDate          time.Time     `json:"due_date"`
	PaidDate         *time.Time    `json:"paid_date,omitempty"`
	Status           PaymentStatus `json:"status,omitempty"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	TransactionID    string        `json:"transaction_id,omitempty"`
	Notes            string        `json:"notes,omitempty"`
}

// UpdateRentPaymentRequest carries a partial update; nil fields are left as-is
type UpdateRentPaymentRequest struct {
	Amount           *float64       `json:"amount,omitempty"`
	LateFee          *float64       `json:"late_fee,omitempty"`
	Discount         *float64       `json:"discount,omitempty"`
	ActualAmountPaid *float64       `json:"actual_amount_paid,omitempty"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	PaidDate         *time.Time     `json:"paid_date,omitempty"`
	Status           *PaymentStatus `json:"status,omitempty"`
	PaymentMethod    *PaymentMethod `json:"payment_method,omitempty"`
	TransactionID    *string        `json:"transaction_id,omitempty"`
	Notes            *string        `json:"notes,omitempty"`
	UnitID           *string        `json:"unit_id,omitempty"`
}

// MarkPaidRequest represents the settle operation input
type MarkPaidRequest struct {
	PaidDate         *time.Time    `json:"paid_date,omitempty"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	TransactionID    string        `json:"transaction_id,omitempty"`
	ActualAmountPaid *float64      `json:"actual_amount_paid,omitempty"`
}
