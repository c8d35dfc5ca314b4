package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type rentReceiptStore struct {
	DB *pgxpool.Pool
}

func NewRentReceiptStore(db *pgxpool.Pool) repositories.RentReceiptRepository {
	return &rentReceiptStore{DB: db}
}

const rentReceiptColumns = `
	id, receipt_number, payment_id, tenant_id, property_id, property_type,
	tenant_name, COALESCE(property_name, ''), COALESCE(property_address, ''),
	COALESCE(unit_label, ''), period_start, period_end, total_amount,
	payment_method, paid_date, generated_at`

func scanRentReceipt(row pgx.Row) (*models.RentReceipt, error) {
	rc := &models.RentReceipt{}
	err := row.Scan(
		&rc.ID,
		&rc.ReceiptNumber,
		&rc.PaymentID,
		&rc.TenantID,
		&rc.PropertyID,
		&rc.PropertyType,
		&rc.TenantName,
		&rc.PropertyName,
		&rc.PropertyAddress,
		&rc.UnitLabel,
		&rc.RentPeriod.StartDate,
		&rc.RentPeriod.EndDate,
		&rc.TotalAmount,
		&rc.PaymentMethod,
		&rc.PaidDate,
		&rc.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *rentReceiptStore) GetAll(ctx context.Context) ([]*models.RentReceipt, error) {
	query := `SELECT ` + rentReceiptColumns + ` FROM rent_receipts ORDER BY generated_at, id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "rent receipt", "")
	}
	defer rows.Close()

	var receipts []*models.RentReceipt
	for rows.Next() {
		rc, err := scanRentReceipt(rows)
		if err != nil {
			return nil, mapError(err, "rent receipt", "")
		}
		receipts = append(receipts, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "rent receipt", "")
	}
	return receipts, nil
}

func (r *rentReceiptStore) GetByID(ctx context.Context, id string) (*models.RentReceipt, error) {
	query := `SELECT ` + rentReceiptColumns + ` FROM rent_receipts WHERE id = $1`
	rc, err := scanRentReceipt(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "rent receipt", id)
	}
	return rc, nil
}

func (r *rentReceiptStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.RentReceipt, error) {
	query := `SELECT ` + rentReceiptColumns + ` FROM rent_receipts WHERE payment_id = $1`
	rc, err := scanRentReceipt(r.DB.QueryRow(ctx, query, paymentID))
	if err != nil {
		return nil, mapError(err, "rent receipt", paymentID)
	}
	return rc, nil
}

func (r *rentReceiptStore) Save(ctx context.Context, receipt *models.RentReceipt) error {
	query := `
		INSERT INTO rent_receipts (id, receipt_number, payment_id, tenant_id, property_id,
			property_type, tenant_name, property_name, property_address, unit_label,
			period_start, period_end, total_amount, payment_method, paid_date, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.DB.Exec(ctx, query,
		receipt.ID,
		receipt.ReceiptNumber,
		receipt.PaymentID,
		receipt.TenantID,
		receipt.PropertyID,
		receipt.PropertyType,
		receipt.TenantName,
		receipt.PropertyName,
		receipt.PropertyAddress,
		receipt.UnitLabel,
		receipt.RentPeriod.StartDate,
		receipt.RentPeriod.EndDate,
		receipt.TotalAmount,
		receipt.PaymentMethod,
		receipt.PaidDate,
		receipt.GeneratedAt,
	)
	return mapError(err, "rent receipt", receipt.ID)
}

func (r *rentReceiptStore) DeleteByPaymentID(ctx context.Context, paymentID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM rent_receipts WHERE payment_id = $1`, paymentID)
	return mapError(err, "rent receipt", paymentID)
}
