package repositories

import (
	"context"
	"time"

	"rentledger-backend/internal/models"
)

// RentPaymentRepository is the record store surface for rent payments
type RentPaymentRepository interface {
	// GetAll returns every payment on record
	GetAll(ctx context.Context) ([]*models.RentPayment, error)

	// GetByID returns one payment or a NotFoundError
	GetByID(ctx context.Context, id string) (*models.RentPayment, error)

	// Save persists a new payment
	Save(ctx context.Context, payment *models.RentPayment) error

	// Update replaces an existing payment, NotFoundError if absent
	Update(ctx context.Context, payment *models.RentPayment) error

	// Delete removes a payment, NotFoundError if absent
	Delete(ctx context.Context, id string) error

	// GetByTenant returns a tenant's payments
	GetByTenant(ctx context.Context, tenantID string) ([]*models.RentPayment, error)

	// GetByStatus returns payments in the given status
	GetByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.RentPayment, error)

	// GetByDueDateRange returns payments whose due date falls in [start, end]
	GetByDueDateRange(ctx context.Context, start, end time.Time) ([]*models.RentPayment, error)

	// NextReceiptSeq reserves the next receipt number sequence value
	NextReceiptSeq(ctx context.Context) (int64, error)
}

// RentReceiptRepository is the record store surface for receipts
type RentReceiptRepository interface {
	GetAll(ctx context.Context) ([]*models.RentReceipt, error)
	GetByID(ctx context.Context, id string) (*models.RentReceipt, error)

	// GetByPaymentID returns the receipt for a payment or a NotFoundError;
	// a payment never has more than one
	GetByPaymentID(ctx context.Context, paymentID string) (*models.RentReceipt, error)

	Save(ctx context.Context, receipt *models.RentReceipt) error

	// DeleteByPaymentID removes a payment's receipt if one exists; absence
	// is not an error, it backs the ledger's delete cascade
	DeleteByPaymentID(ctx context.Context, paymentID string) error
}

// SecurityDepositRepository is the record store surface for deposits.
// Deposits are never deleted; refund and forfeiture are terminal statuses.
type SecurityDepositRepository interface {
	GetAll(ctx context.Context) ([]*models.SecurityDeposit, error)
	GetByID(ctx context.Context, id string) (*models.SecurityDeposit, error)

	// GetByTenantID returns the tenant's deposit record or a NotFoundError
	GetByTenantID(ctx context.Context, tenantID string) (*models.SecurityDeposit, error)

	Save(ctx context.Context, deposit *models.SecurityDeposit) error
	Update(ctx context.Context, deposit *models.SecurityDeposit) error
}

// CollectionReportRepository archives generated reports append-only
type CollectionReportRepository interface {
	GetAll(ctx context.Context) ([]*models.RentCollectionReport, error)
	GetByID(ctx context.Context, id string) (*models.RentCollectionReport, error)
	Save(ctx context.Context, report *models.RentCollectionReport) error
}

// TenantRepository is the directory surface for tenants
type TenantRepository interface {
	GetAll(ctx context.Context) ([]*models.Tenant, error)
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	GetByPhone(ctx context.Context, phone string) (*models.Tenant, error)
	Save(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, id string) error
}

// PropertyRepository is the directory surface for buildings, flats and lands
type PropertyRepository interface {
	GetBuildingByID(ctx context.Context, id string) (*models.Building, error)
	GetFlatByID(ctx context.Context, id string) (*models.Flat, error)
	GetLandByID(ctx context.Context, id string) (*models.Land, error)
	ListBuildings(ctx context.Context) ([]*models.Building, error)
	ListFlats(ctx context.Context) ([]*models.Flat, error)
	ListLands(ctx context.Context) ([]*models.Land, error)
	SaveBuilding(ctx context.Context, b *models.Building) error
	SaveFlat(ctx context.Context, f *models.Flat) error
	SaveLand(ctx context.Context, l *models.Land) error
	UpdateBuilding(ctx context.Context, b *models.Building) error
	UpdateFlat(ctx context.Context, f *models.Flat) error
	UpdateLand(ctx context.Context, l *models.Land) error
}

// UserRepository stores staff accounts
type UserRepository interface {
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetTOTPSecret(ctx context.Context, userID, secret string) error
	SetTOTPEnabled(ctx context.Context, userID string, enabled bool) error
}

// OnlineTransactionRepository stores Razorpay checkout records
type OnlineTransactionRepository interface {
	List(ctx context.Context) ([]*models.OnlineTransaction, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error)
	GetByTenant(ctx context.Context, tenantID string) ([]*models.OnlineTransaction, error)
	Save(ctx context.Context, tx *models.OnlineTransaction) error
	Update(ctx context.Context, tx *models.OnlineTransaction) error
}

// SystemSettingRepository stores operator-tunable settings
type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	List(ctx context.Context) ([]*models.SystemSetting, error)
	Update(ctx context.Context, key, value, userID string) error
	Upsert(ctx context.Context, key, value, description, userID string) error
}

// SMSLogRepository records outbound notification messages
type SMSLogRepository interface {
	Create(ctx context.Context, log *models.SMSLog) error
	List(ctx context.Context, limit int) ([]*models.SMSLog, error)
}

// TOTPRepository stores hashed single-use backup codes
type TOTPRepository interface {
	ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error
	GetUnusedBackupCodes(ctx context.Context, userID string) ([]*models.TOTPBackupCode, error)
	MarkBackupCodeUsed(ctx context.Context, id string) error
}

// TenantOTPRepository stores tenant portal login codes
type TenantOTPRepository interface {
	Create(ctx context.Context, otp *models.TenantOTP) error

	// GetLatestByPhone returns the newest code for a phone or a NotFoundError
	GetLatestByPhone(ctx context.Context, phone string) (*models.TenantOTP, error)

	IncrementAttempts(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string) error

	// CountRecentRequests counts codes issued to a phone within the window,
	// feeding the cooldown and daily caps
	CountRecentRequests(ctx context.Context, phone string, window time.Duration) (int, error)
}

// Store bundles every repository behind one handle for wiring
type Store struct {
	RentPayments RentPaymentRepository
	RentReceipts RentReceiptRepository
	Deposits     SecurityDepositRepository
	Reports      CollectionReportRepository
	Tenants      TenantRepository
	Properties   PropertyRepository
	Users        UserRepository
	OnlineTxns   OnlineTransactionRepository
	Settings     SystemSettingRepository
	SMSLogs      SMSLogRepository
	TOTP         TOTPRepository
	TenantOTPs   TenantOTPRepository
}
