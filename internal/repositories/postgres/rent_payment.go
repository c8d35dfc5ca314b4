package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type rentPaymentStore struct {
	DB *pgxpool.Pool
}

func NewRentPaymentStore(db *pgxpool.Pool) repositories.RentPaymentRepository {
	return &rentPaymentStore{DB: db}
}

const rentPaymentColumns = `
	id, tenant_id, property_id, property_type, COALESCE(unit_id, ''),
	amount, due_date, paid_date, status, payment_method,
	COALESCE(transaction_id, ''), late_fee, discount, actual_amount_paid,
	COALESCE(notes, ''), COALESCE(receipt_number, ''), created_at, updated_at`

func scanRentPayment(row pgx.Row) (*models.RentPayment, error) {
	p := &models.RentPayment{}
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.PropertyID,
		&p.PropertyType,
		&p.UnitID,
		&p.Amount,
		&p.DueDate,
		&p.PaidDate,
		&p.Status,
		&p.PaymentMethod,
		&p.TransactionID,
		&p.LateFee,
		&p.Discount,
		&p.ActualAmountPaid,
		&p.Notes,
		&p.ReceiptNumber,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *rentPaymentStore) collect(rows pgx.Rows) ([]*models.RentPayment, error) {
	defer rows.Close()
	var payments []*models.RentPayment
	for rows.Next() {
		p, err := scanRentPayment(rows)
		if err != nil {
			return nil, mapError(err, "rent payment", "")
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "rent payment", "")
	}
	return payments, nil
}

func (r *rentPaymentStore) GetAll(ctx context.Context) ([]*models.RentPayment, error) {
	query := `SELECT ` + rentPaymentColumns + ` FROM rent_payments ORDER BY created_at, id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "rent payment", "")
	}
	return r.collect(rows)
}

func (r *rentPaymentStore) GetByID(ctx context.Context, id string) (*models.RentPayment, error) {
	query := `SELECT ` + rentPaymentColumns + ` FROM rent_payments WHERE id = $1`
	p, err := scanRentPayment(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "rent payment", id)
	}
	return p, nil
}

func (r *rentPaymentStore) Save(ctx context.Context, payment *models.RentPayment) error {
	query := `
		INSERT INTO rent_payments (id, tenant_id, property_id, property_type, unit_id,
			amount, due_date, paid_date, status, payment_method, transaction_id,
			late_fee, discount, actual_amount_paid, notes, receipt_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.DB.Exec(ctx, query,
		payment.ID,
		payment.TenantID,
		payment.PropertyID,
		payment.PropertyType,
		payment.UnitID,
		payment.Amount,
		payment.DueDate,
		payment.PaidDate,
		payment.Status,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.LateFee,
		payment.Discount,
		payment.ActualAmountPaid,
		payment.Notes,
		payment.ReceiptNumber,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return mapError(err, "rent payment", payment.ID)
}

func (r *rentPaymentStore) Update(ctx context.Context, payment *models.RentPayment) error {
	query := `
		UPDATE rent_payments
		SET tenant_id = $2, property_id = $3, property_type = $4, unit_id = $5,
		    amount = $6, due_date = $7, paid_date = $8, status = $9, payment_method = $10,
		    transaction_id = $11, late_fee = $12, discount = $13, actual_amount_paid = $14,
		    notes = $15, receipt_number = $16, updated_at = $17
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query,
		payment.ID,
		payment.TenantID,
		payment.PropertyID,
		payment.PropertyType,
		payment.UnitID,
		payment.Amount,
		payment.DueDate,
		payment.PaidDate,
		payment.Status,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.LateFee,
		payment.Discount,
		payment.ActualAmountPaid,
		payment.Notes,
		payment.ReceiptNumber,
		payment.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "rent payment", payment.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "rent payment", payment.ID)
	}
	return nil
}

func (r *rentPaymentStore) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM rent_payments WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "rent payment", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "rent payment", id)
	}
	return nil
}

func (r *rentPaymentStore) GetByTenant(ctx context.Context, tenantID string) ([]*models.RentPayment, error) {
	query := `SELECT ` + rentPaymentColumns + ` FROM rent_payments WHERE tenant_id = $1 ORDER BY due_date DESC`
	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, mapError(err, "rent payment", tenantID)
	}
	return r.collect(rows)
}

func (r *rentPaymentStore) GetByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.RentPayment, error) {
	query := `SELECT ` + rentPaymentColumns + ` FROM rent_payments WHERE status = $1 ORDER BY due_date`
	rows, err := r.DB.Query(ctx, query, status)
	if err != nil {
		return nil, mapError(err, "rent payment", "")
	}
	return r.collect(rows)
}

func (r *rentPaymentStore) GetByDueDateRange(ctx context.Context, start, end time.Time) ([]*models.RentPayment, error) {
	query := `SELECT ` + rentPaymentColumns + ` FROM rent_payments WHERE due_date >= $1 AND due_date <= $2 ORDER BY due_date`
	rows, err := r.DB.Query(ctx, query, start, end)
	if err != nil {
		return nil, mapError(err, "rent payment", "")
	}
	return r.collect(rows)
}

func (r *rentPaymentStore) NextReceiptSeq(ctx context.Context) (int64, error) {
	var next int64
	err := r.DB.QueryRow(ctx, `SELECT nextval('receipt_number_seq')`).Scan(&next)
	if err != nil {
		return 0, mapError(err, "receipt sequence", "")
	}
	return next, nil
}
