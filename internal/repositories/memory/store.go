// Package memory provides an in-process record store. It backs the unit test
// suite and doubles as a zero-dependency demo mode; the postgres package is
// the production store.
package memory

import (
	"sync"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

// NewStore creates an unbounded in-memory store
func NewStore() *repositories.Store {
	return NewStoreWithQuota(0)
}

// NewStoreWithQuota creates a store that rejects saves once a collection
// holds maxPerCollection records (0 means unlimited). The quota surfaces the
// same QuotaExceededError the production store maps storage-full failures to.
func NewStoreWithQuota(maxPerCollection int) *repositories.Store {
	q := &quota{max: maxPerCollection}
	return &repositories.Store{
		RentPayments: &paymentRepo{items: map[string]*models.RentPayment{}, quota: q},
		RentReceipts: &receiptRepo{items: map[string]*models.RentReceipt{}, quota: q},
		Deposits:     &depositRepo{items: map[string]*models.SecurityDeposit{}, quota: q},
		Reports:      &reportRepo{items: map[string]*models.RentCollectionReport{}, quota: q},
		Tenants:      &tenantRepo{items: map[string]*models.Tenant{}, quota: q},
		Properties: &propertyRepo{
			buildings: map[string]*models.Building{},
			flats:     map[string]*models.Flat{},
			lands:     map[string]*models.Land{},
			quota:     q,
		},
		Users:      &userRepo{items: map[string]*models.User{}, quota: q},
		OnlineTxns: &onlineTxRepo{items: map[string]*models.OnlineTransaction{}, quota: q},
		Settings:   &settingRepo{items: map[string]*models.SystemSetting{}},
		SMSLogs:    &smsLogRepo{},
		TOTP:       &totpRepo{byUser: map[string][]*models.TOTPBackupCode{}},
		TenantOTPs: &tenantOTPRepo{},
	}
}

type quota struct {
	max int
}

// check returns a QuotaExceededError when a collection is at capacity
func (q *quota) check(collection string, current int) error {
	if q.max > 0 && current >= q.max {
		return &apperrors.QuotaExceededError{Collection: collection}
	}
	return nil
}

// locker is embedded by every repo for mutex hygiene
type locker struct {
	mu sync.RWMutex
}
