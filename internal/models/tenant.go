package models

import "time"

// RentalAgreement carries a tenant's rent terms
type RentalAgreement struct {
	RentAmount      float64       `json:"rent_amount"`
	RentDueDate     int           `json:"rent_due_date"` // day of month, clamped into short months
	SecurityDeposit float64       `json:"security_deposit"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

// Tenant is a renter registered in the property directory
type Tenant struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email,omitempty"`
	PropertyID      string          `json:"property_id"`
	PropertyType    PropertyType    `json:"property_type"`
	UnitID          string          `json:"unit_id,omitempty"`
	RentalAgreement RentalAgreement `json:"rental_agreement"`
	IsActive        bool            `json:"is_active"`
	MoveInDate      time.Time       `json:"move_in_date"`
	MoveOutDate     *time.Time      `json:"move_out_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasResolvableProperty reports whether the tenant carries enough directory
// linkage for monthly payment generation
func (t *Tenant) HasResolvableProperty() bool {
	return t.PropertyID != "" && t.PropertyType.IsValid()
}

// CreateTenantRequest represents the request body for registering a tenant
type CreateTenantRequest struct {
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email,omitempty"`
	PropertyID      string          `json:"property_id"`
	PropertyType    PropertyType    `json:"property_type"`
	UnitID          string          `json:"unit_id,omitempty"`
	RentalAgreement RentalAgreement `json:"rental_agreement"`
}

// UpdateTenantRequest carries a partial tenant update
type UpdateTenantRequest struct {
	Name            *string          `json:"name,omitempty"`
	Phone           *string          `json:"phone,omitempty"`
	Email           *string          `json:"email,omitempty"`
	PropertyID      *string          `json:"property_id,omitempty"`
	PropertyType    *PropertyType    `json:"property_type,omitempty"`
	UnitID          *string          `json:"unit_id,omitempty"`
	RentalAgreement *RentalAgreement `json:"rental_agreement,omitempty"`
	IsActive        *bool            `json:"is_active,omitempty"`
}
