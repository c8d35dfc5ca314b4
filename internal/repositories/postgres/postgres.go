// Package postgres implements the record store over a pgx connection pool.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/repositories"
)

// NewStore wires every repository over one shared pool
func NewStore(db *pgxpool.Pool) *repositories.Store {
	return &repositories.Store{
		RentPayments: NewRentPaymentStore(db),
		RentReceipts: NewRentReceiptStore(db),
		Deposits:     NewSecurityDepositStore(db),
		Reports:      NewCollectionReportStore(db),
		Tenants:      NewTenantStore(db),
		Properties:   NewPropertyStore(db),
		Users:        NewUserStore(db),
		OnlineTxns:   NewOnlineTransactionStore(db),
		Settings:     NewSystemSettingStore(db),
		SMSLogs:      NewSMSLogStore(db),
		TOTP:         NewTOTPStore(db),
		TenantOTPs:   NewTenantOTPStore(db),
	}
}

// mapError translates driver failures into the ledger error taxonomy.
// Absent rows become NotFoundError, insufficient-resource SQLSTATEs (class 53,
// disk full included) become QuotaExceededError, and connection-level failures
// (class 08, or 57 shutdown states) become StorageUnavailableError. Anything
// else is wrapped as-is.
func mapError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		class := ""
		if len(pgErr.Code) >= 2 {
			class = pgErr.Code[:2]
		}
		switch class {
		case "53":
			return &apperrors.QuotaExceededError{Collection: resource}
		case "08", "57":
			return &apperrors.StorageUnavailableError{Cause: pgErr}
		}
		return fmt.Errorf("%s query failed: %w", resource, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &apperrors.StorageUnavailableError{Cause: err}
	}
	return fmt.Errorf("%s query failed: %w", resource, err)
}
