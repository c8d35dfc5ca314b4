package models

import "time"

// ReportType classifies the window a collection report covers
type ReportType string

const (
	ReportTypeMonthly   ReportType = "monthly"
	ReportTypeQuarterly ReportType = "quarterly"
	ReportTypeYearly    ReportType = "yearly"
	ReportTypeCustom    ReportType = "custom"
)

// IsValid reports whether the report type is one of the known values
func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeMonthly, ReportTypeQuarterly, ReportTypeYearly, ReportTypeCustom:
		return true
	}
	return false
}

// ReportPeriod is the inclusive due-date window a report aggregates over
type ReportPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// PropertyCollection is the per-(property, unit) slice of a report
type PropertyCollection struct {
	PropertyID      string       `json:"property_id"`
	UnitID          string       `json:"unit_id,omitempty"`
	PropertyType    PropertyType `json:"property_type"`
	ExpectedRent    float64      `json:"expected_rent"`
	CollectedRent   float64      `json:"collected_rent"`
	OutstandingRent float64      `json:"outstanding_rent"`
	CollectionRate  float64      `json:"collection_rate"`
	PaymentCount    int          `json:"payment_count"`
}

// TenantCollection is the per-tenant slice of a report. DaysPastDue is the
// lateness of the tenant's single most-overdue obligation, not a sum.
type TenantCollection struct {
	TenantID        string        `json:"tenant_id"`
	TenantName      string        `json:"tenant_name,omitempty"`
	ExpectedRent    float64       `json:"expected_rent"`
	CollectedRent   float64       `json:"collected_rent"`
	OutstandingRent float64       `json:"outstanding_rent"`
	DaysPastDue     int           `json:"days_past_due"`
	Payments        []RentPayment `json:"payments"`
}

// PaymentMethodCollection is the per-method slice of a report, computed over
// paid payments only
type PaymentMethodCollection struct {
	Method      PaymentMethod `json:"method"`
	Count       int           `json:"count"`
	TotalAmount float64       `json:"total_amount"`
	Percentage  float64       `json:"percentage"`
}

// RentCollectionReport is a point-in-time aggregate snapshot. Reports are
// archived append-only and never recomputed in place.
type RentCollectionReport struct {
	ID                     string                    `json:"id"`
	ReportType             ReportType                `json:"report_type"`
	Period                 ReportPeriod              `json:"period"`
	TotalExpectedRent      float64                   `json:"total_expected_rent"`
	TotalCollectedRent     float64                   `json:"total_collected_rent"`
	TotalOutstandingRent   float64                   `json:"total_outstanding_rent"`
	CollectionRate         float64                   `json:"collection_rate"`
	TotalPayments          int                       `json:"total_payments"`
	PropertyBreakdown      []PropertyCollection      `json:"property_breakdown"`
	TenantBreakdown        []TenantCollection        `json:"tenant_breakdown"`
	PaymentMethodBreakdown []PaymentMethodCollection `json:"payment_method_breakdown"`
	GeneratedAt            time.Time                 `json:"generated_at"`
}

// RentAnalytics is the lighter dashboard variant of the report aggregation
type RentAnalytics struct {
	Period                 ReportPeriod `json:"period"`
	TotalExpectedRent      float64      `json:"total_expected_rent"`
	TotalCollectedRent     float64      `json:"total_collected_rent"`
	TotalOutstandingRent   float64      `json:"total_outstanding_rent"`
	CollectionRate         float64      `json:"collection_rate"`
	TotalPayments          int          `json:"total_payments"`
	TotalProperties        int          `json:"total_properties"`
	TotalTenants           int          `json:"total_tenants"`
	AverageRentPerProperty float64      `json:"average_rent_per_property"`
}

// GenerateReportRequest represents the request body for report generation
type GenerateReportRequest struct {
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	ReportType ReportType `json:"report_type"`
}
