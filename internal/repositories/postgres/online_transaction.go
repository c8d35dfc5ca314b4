package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type onlineTransactionStore struct {
	DB *pgxpool.Pool
}

func NewOnlineTransactionStore(db *pgxpool.Pool) repositories.OnlineTransactionRepository {
	return &onlineTransactionStore{DB: db}
}

const onlineTransactionColumns = `
	id, razorpay_order_id, COALESCE(razorpay_payment_id, ''), COALESCE(razorpay_signature, ''),
	tenant_id, tenant_phone, tenant_name, rent_payment_id,
	amount, fee_amount, total_amount,
	COALESCE(utr_number, ''), COALESCE(payment_method, ''), COALESCE(bank, ''), COALESCE(vpa, ''),
	COALESCE(card_last4, ''), COALESCE(card_network, ''),
	status, COALESCE(failure_reason, ''), created_at, completed_at`

func scanOnlineTransaction(row pgx.Row) (*models.OnlineTransaction, error) {
	tx := &models.OnlineTransaction{}
	err := row.Scan(
		&tx.ID, &tx.RazorpayOrderID, &tx.RazorpayPaymentID, &tx.RazorpaySignature,
		&tx.TenantID, &tx.TenantPhone, &tx.TenantName, &tx.RentPaymentID,
		&tx.Amount, &tx.FeeAmount, &tx.TotalAmount,
		&tx.UTRNumber, &tx.PaymentMethod, &tx.Bank, &tx.VPA,
		&tx.CardLast4, &tx.CardNetwork,
		&tx.Status, &tx.FailureReason, &tx.CreatedAt, &tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *onlineTransactionStore) List(ctx context.Context) ([]*models.OnlineTransaction, error) {
	query := `SELECT ` + onlineTransactionColumns + ` FROM online_transactions ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "online transaction", "")
	}
	defer rows.Close()

	var txns []*models.OnlineTransaction
	for rows.Next() {
		tx, err := scanOnlineTransaction(rows)
		if err != nil {
			return nil, mapError(err, "online transaction", "")
		}
		txns = append(txns, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "online transaction", "")
	}
	return txns, nil
}

func (r *onlineTransactionStore) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	query := `SELECT ` + onlineTransactionColumns + ` FROM online_transactions WHERE razorpay_order_id = $1`
	tx, err := scanOnlineTransaction(r.DB.QueryRow(ctx, query, orderID))
	if err != nil {
		return nil, mapError(err, "online transaction", orderID)
	}
	return tx, nil
}

func (r *onlineTransactionStore) GetByTenant(ctx context.Context, tenantID string) ([]*models.OnlineTransaction, error) {
	query := `SELECT ` + onlineTransactionColumns + ` FROM online_transactions WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, query, tenantID)
	if err != nil {
		return nil, mapError(err, "online transaction", tenantID)
	}
	defer rows.Close()

	var txns []*models.OnlineTransaction
	for rows.Next() {
		tx, err := scanOnlineTransaction(rows)
		if err != nil {
			return nil, mapError(err, "online transaction", "")
		}
		txns = append(txns, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "online transaction", "")
	}
	return txns, nil
}

func (r *onlineTransactionStore) Save(ctx context.Context, tx *models.OnlineTransaction) error {
	query := `
		INSERT INTO online_transactions (id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
			tenant_id, tenant_phone, tenant_name, rent_payment_id, amount, fee_amount, total_amount,
			utr_number, payment_method, bank, vpa, card_last4, card_network,
			status, failure_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := r.DB.Exec(ctx, query,
		tx.ID, tx.RazorpayOrderID, tx.RazorpayPaymentID, tx.RazorpaySignature,
		tx.TenantID, tx.TenantPhone, tx.TenantName, tx.RentPaymentID,
		tx.Amount, tx.FeeAmount, tx.TotalAmount,
		tx.UTRNumber, tx.PaymentMethod, tx.Bank, tx.VPA, tx.CardLast4, tx.CardNetwork,
		tx.Status, tx.FailureReason, tx.CreatedAt, tx.CompletedAt,
	)
	return mapError(err, "online transaction", tx.ID)
}

func (r *onlineTransactionStore) Update(ctx context.Context, tx *models.OnlineTransaction) error {
	query := `
		UPDATE online_transactions
		SET razorpay_payment_id = $2, razorpay_signature = $3, utr_number = $4,
		    payment_method = $5, bank = $6, vpa = $7, card_last4 = $8, card_network = $9,
		    status = $10, failure_reason = $11, completed_at = $12
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query,
		tx.ID, tx.RazorpayPaymentID, tx.RazorpaySignature, tx.UTRNumber,
		tx.PaymentMethod, tx.Bank, tx.VPA, tx.CardLast4, tx.CardNetwork,
		tx.Status, tx.FailureReason, tx.CompletedAt,
	)
	if err != nil {
		return mapError(err, "online transaction", tx.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "online transaction", tx.ID)
	}
	return nil
}
