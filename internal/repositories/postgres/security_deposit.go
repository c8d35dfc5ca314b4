package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type securityDepositStore struct {
	DB *pgxpool.Pool
}

func NewSecurityDepositStore(db *pgxpool.Pool) repositories.SecurityDepositRepository {
	return &securityDepositStore{DB: db}
}

const securityDepositColumns = `
	id, tenant_id, property_id, property_type, amount, status,
	COALESCE(deductions, '[]'::jsonb), refund_date, refund_amount,
	COALESCE(refund_notes, ''), created_at, updated_at`

func scanSecurityDeposit(row pgx.Row) (*models.SecurityDeposit, error) {
	d := &models.SecurityDeposit{}
	var deductions []byte
	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.PropertyID,
		&d.PropertyType,
		&d.Amount,
		&d.Status,
		&deductions,
		&d.RefundDate,
		&d.RefundAmount,
		&d.RefundNotes,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(deductions) > 0 {
		if err := json.Unmarshal(deductions, &d.Deductions); err != nil {
			return nil, fmt.Errorf("failed to decode deductions: %w", err)
		}
	}
	return d, nil
}

func (r *securityDepositStore) GetAll(ctx context.Context) ([]*models.SecurityDeposit, error) {
	query := `SELECT ` + securityDepositColumns + ` FROM security_deposits ORDER BY created_at, id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "security deposit", "")
	}
	defer rows.Close()

	var deposits []*models.SecurityDeposit
	for rows.Next() {
		d, err := scanSecurityDeposit(rows)
		if err != nil {
			return nil, mapError(err, "security deposit", "")
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "security deposit", "")
	}
	return deposits, nil
}

func (r *securityDepositStore) GetByID(ctx context.Context, id string) (*models.SecurityDeposit, error) {
	query := `SELECT ` + securityDepositColumns + ` FROM security_deposits WHERE id = $1`
	d, err := scanSecurityDeposit(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "security deposit", id)
	}
	return d, nil
}

func (r *securityDepositStore) GetByTenantID(ctx context.Context, tenantID string) (*models.SecurityDeposit, error) {
	query := `SELECT ` + securityDepositColumns + ` FROM security_deposits WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 1`
	d, err := scanSecurityDeposit(r.DB.QueryRow(ctx, query, tenantID))
	if err != nil {
		return nil, mapError(err, "security deposit", tenantID)
	}
	return d, nil
}

func (r *securityDepositStore) Save(ctx context.Context, deposit *models.SecurityDeposit) error {
	deductions, err := json.Marshal(deposit.Deductions)
	if err != nil {
		return fmt.Errorf("failed to encode deductions: %w", err)
	}
	query := `
		INSERT INTO security_deposits (id, tenant_id, property_id, property_type, amount,
			status, deductions, refund_date, refund_amount, refund_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.DB.Exec(ctx, query,
		deposit.ID,
		deposit.TenantID,
		deposit.PropertyID,
		deposit.PropertyType,
		deposit.Amount,
		deposit.Status,
		deductions,
		deposit.RefundDate,
		deposit.RefundAmount,
		deposit.RefundNotes,
		deposit.CreatedAt,
		deposit.UpdatedAt,
	)
	return mapError(err, "security deposit", deposit.ID)
}

func (r *securityDepositStore) Update(ctx context.Context, deposit *models.SecurityDeposit) error {
	deductions, err := json.Marshal(deposit.Deductions)
	if err != nil {
		return fmt.Errorf("failed to encode deductions: %w", err)
	}
	query := `
		UPDATE security_deposits
		SET amount = $2, status = $3, deductions = $4, refund_date = $5,
		    refund_amount = $6, refund_notes = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query,
		deposit.ID,
		deposit.Amount,
		deposit.Status,
		deductions,
		deposit.RefundDate,
		deposit.RefundAmount,
		deposit.RefundNotes,
		deposit.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "security deposit", deposit.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "security deposit", deposit.ID)
	}
	return nil
}
