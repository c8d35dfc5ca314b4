package models

import (
	"time"

	"rentledger-backend/internal/apperrors"
)

// DepositStatus represents the lifecycle state of a security deposit.
// Refunded and forfeited are terminal; records are never deleted.
type DepositStatus string

const (
	DepositStatusHeld      DepositStatus = "held"
	DepositStatusRefunded  DepositStatus = "refunded"
	DepositStatusForfeited DepositStatus = "forfeited"
)

// DeductionCategory classifies a deposit deduction
type DeductionCategory string

const (
	DeductionCategoryDamage     DeductionCategory = "damage"
	DeductionCategoryCleaning   DeductionCategory = "cleaning"
	DeductionCategoryUnpaidRent DeductionCategory = "unpaid_rent"
	DeductionCategoryOther      DeductionCategory = "other"
)

// IsValid reports whether the category is one of the known values
func (c DeductionCategory) IsValid() bool {
	switch c {
	case DeductionCategoryDamage, DeductionCategoryCleaning, DeductionCategoryUnpaidRent, DeductionCategoryOther:
		return true
	}
	return false
}

// SecurityDepositDeduction is one append-only charge against a held deposit
type SecurityDepositDeduction struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Amount      float64           `json:"amount"`
	Category    DeductionCategory `json:"category"`
	Date        time.Time         `json:"date"`
	Documents   []string          `json:"documents,omitempty"`
}

// SecurityDeposit tracks a tenant's deposit from move-in through refund or
// forfeiture
type SecurityDeposit struct {
	ID           string                     `json:"id"`
	TenantID     string                     `json:"tenant_id"`
	PropertyID   string                     `json:"property_id"`
	Amount       float64                    `json:"amount"`
	PaidDate     time.Time                  `json:"paid_date"`
	Status       DepositStatus              `json:"status"`
	Deductions   []SecurityDepositDeduction `json:"deductions"`
	RefundDate   *time.Time                 `json:"refund_date,omitempty"`
	RefundAmount *float64                   `json:"refund_amount,omitempty"`
	RefundNotes  string                     `json:"refund_notes,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// DeductionTotal sums all recorded deductions
func (d *SecurityDeposit) DeductionTotal() float64 {
	var total float64
	for _, ded := range d.Deductions {
		total += ded.Amount
	}
	return total
}

// RefundableAmount is the deposit minus deductions, floored at zero
func (d *SecurityDeposit) RefundableAmount() float64 {
	remaining := d.Amount - d.DeductionTotal()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AddDeductionRequest represents the request body for recording a deduction
type AddDeductionRequest struct {
	Description string            `json:"description"`
	Amount      float64           `json:"amount"`
	Category    DeductionCategory `json:"category"`
	Date        *time.Time        `json:"date,omitempty"`
	Documents   []string          `json:"documents,omitempty"`
}

// Validate checks the deduction input
func (r *AddDeductionRequest) Validate() error {
	if r.Description == "" {
		return apperrors.NewValidation("description", "description is required")
	}
	if r.Amount <= 0 {
		return apperrors.NewValidation("amount", "must be greater than zero")
	}
	if !r.Category.IsValid() {
		return apperrors.NewValidation("category", "unknown deduction category")
	}
	return nil
}

// RefundDepositRequest represents the refund operation input
type RefundDepositRequest struct {
	RefundAmount float64 `json:"refund_amount"`
	Notes        string  `json:"notes,omitempty"`
}
