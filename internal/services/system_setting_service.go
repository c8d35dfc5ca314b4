package services

import (
	"context"
	"log"
	"strconv"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type SystemSettingService struct {
	Store *repositories.Store
}

func NewSystemSettingService(store *repositories.Store) *SystemSettingService {
	return &SystemSettingService{Store: store}
}

func (s *SystemSettingService) GetSetting(ctx context.Context, key string) (*models.SystemSetting, error) {
	return s.Store.Settings.Get(ctx, key)
}

func (s *SystemSettingService) ListSettings(ctx context.Context) ([]*models.SystemSetting, error) {
	return s.Store.Settings.List(ctx)
}

func (s *SystemSettingService) UpdateSetting(ctx context.Context, key, value, userID string) error {
	if key == "" {
		return apperrors.NewValidation("key", "setting key is required")
	}
	if err := s.Store.Settings.Update(ctx, key, value, userID); err != nil {
		return err
	}
	cache.InvalidateSettingCaches(ctx)
	log.Printf("[Settings] %s updated by user %s", key, userID)
	return nil
}

// UpsertSetting creates or updates a setting. Seeding on boot goes
// through here.
func (s *SystemSettingService) UpsertSetting(ctx context.Context, key, value, description, userID string) error {
	if key == "" {
		return apperrors.NewValidation("key", "setting key is required")
	}
	if err := s.Store.Settings.Upsert(ctx, key, value, description, userID); err != nil {
		return err
	}
	cache.InvalidateSettingCaches(ctx)
	return nil
}

// GetValue returns a setting's raw value, or fallback when the key is
// absent or the store is unreachable.
func (s *SystemSettingService) GetValue(ctx context.Context, key, fallback string) string {
	setting, err := s.Store.Settings.Get(ctx, key)
	if err != nil || setting == nil || setting.SettingValue == "" {
		return fallback
	}
	return setting.SettingValue
}

// GetIntValue is GetValue for whole-number settings like reminder lead days.
func (s *SystemSettingService) GetIntValue(ctx context.Context, key string, fallback int) int {
	raw := s.GetValue(ctx, key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// SeedDefaults inserts the well-known settings that the nightly jobs and
// the checkout flow read, skipping keys an operator has already set.
func (s *SystemSettingService) SeedDefaults(ctx context.Context) error {
	defaults := []struct {
		key, value, description string
	}{
		{models.SettingOnlinePaymentEnabled, "false", "Allow tenants to pay rent online through Razorpay"},
		{models.SettingOnlinePaymentFeePercent, "2.5", "Convenience fee percentage added to online payments"},
		{models.SettingReceiptFooterNote, "", "Free-text note printed at the bottom of rent receipts"},
		{models.SettingReminderDaysBefore, "3", "How many days before the due date to send rent reminders"},
		{models.SettingUpcomingDaysAhead, "7", "Window in days for the upcoming payments view"},
	}
	for _, d := range defaults {
		if _, err := s.Store.Settings.Get(ctx, d.key); err == nil {
			continue
		} else if !apperrors.IsNotFound(err) {
			return err
		}
		if err := s.Store.Settings.Upsert(ctx, d.key, d.value, d.description, ""); err != nil {
			return err
		}
	}
	return nil
}
