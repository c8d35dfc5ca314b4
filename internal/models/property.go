package models

import "time"

// PropertyType distinguishes the three kinds of rentable property
type PropertyType string

const (
	PropertyTypeBuilding PropertyType = "building"
	PropertyTypeFlat     PropertyType = "flat"
	PropertyTypeLand     PropertyType = "land"
)

// IsValid reports whether the property type is one of the known values
func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyTypeBuilding, PropertyTypeFlat, PropertyTypeLand:
		return true
	}
	return false
}

// Apartment is a rentable unit inside a building
type Apartment struct {
	ID              string `json:"id"`
	UnitNumber      string `json:"unit_number"`
	Floor           string `json:"floor,omitempty"`
	IsOccupied      bool   `json:"is_occupied"`
	CurrentTenantID string `json:"current_tenant_id,omitempty"`
}

// Building is a multi-unit property
type Building struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Apartments []Apartment `json:"apartments"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Flat is a standalone rentable flat
type Flat struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	IsOccupied      bool      `json:"is_occupied"`
	CurrentTenantID string    `json:"current_tenant_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Land is a rentable plot
type Land struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	IsOccupied      bool      `json:"is_occupied"`
	CurrentTenantID string    `json:"current_tenant_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PropertySnapshot is the display data copied onto receipts at generation
// time, decoupled from later directory edits
type PropertySnapshot struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	UnitLabel string `json:"unit_label,omitempty"`
}

// CreateBuildingRequest represents the request body for creating a building
type CreateBuildingRequest struct {
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Apartments []Apartment `json:"apartments,omitempty"`
}

// CreateFlatRequest represents the request body for creating a flat
type CreateFlatRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateLandRequest represents the request body for creating a land plot
type CreateLandRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
