package models

import "time"

// TenantOTP is a one-time login code for the tenant portal
type TenantOTP struct {
	ID         string     `json:"id"`
	Phone      string     `json:"phone"`
	OTPCode    string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Attempts   int        `json:"attempts"`
	IPAddress  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PortalLoginRequest starts a tenant portal login
type PortalLoginRequest struct {
	Phone string `json:"phone"`
}

// PortalVerifyRequest completes a tenant portal login
type PortalVerifyRequest struct {
	Phone      string `json:"phone"`
	Code       string `json:"code"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// PortalAuthResponse is returned after a successful portal login
type PortalAuthResponse struct {
	Token  string  `json:"token"`
	Tenant *Tenant `json:"tenant"`
}
