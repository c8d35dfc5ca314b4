package models

import "time"

type SystemSetting struct {
	ID              int       `json:"id"`
	SettingKey      string    `json:"setting_key"`
	SettingValue    string    `json:"setting_value"`
	Description     string    `json:"description"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedByUserID string    `json:"updated_by_user_id"`
}

type UpdateSettingRequest struct {
	SettingValue string `json:"setting_value"`
}

// Well-known setting keys
const (
	SettingOnlinePaymentEnabled    = "online_payment_enabled"
	SettingOnlinePaymentFeePercent = "online_payment_fee_percent"
	SettingReceiptFooterNote       = "receipt_footer_note"
	SettingReminderDaysBefore      = "reminder_days_before"
	SettingUpcomingDaysAhead       = "upcoming_days_ahead"
	SettingRazorpayKeyID           = "razorpay_key_id"
	SettingRazorpayKeySecret       = "razorpay_key_secret"
	SettingRazorpayWebhookSecret   = "razorpay_webhook_secret"
)
