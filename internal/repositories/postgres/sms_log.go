package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type smsLogStore struct {
	DB *pgxpool.Pool
}

func NewSMSLogStore(db *pgxpool.Pool) repositories.SMSLogRepository {
	return &smsLogStore{DB: db}
}

func (r *smsLogStore) Create(ctx context.Context, log *models.SMSLog) error {
	query := `
		INSERT INTO sms_logs (id, tenant_id, tenant_name, phone, message_type, message,
			status, error_message, reference_id, cost, created_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.DB.Exec(ctx, query,
		log.ID,
		log.TenantID,
		log.TenantName,
		log.Phone,
		log.MessageType,
		log.Message,
		log.Status,
		log.ErrorMessage,
		log.ReferenceID,
		log.Cost,
		log.CreatedAt,
		log.DeliveredAt,
	)
	return mapError(err, "sms log", log.ID)
}

func (r *smsLogStore) List(ctx context.Context, limit int) ([]*models.SMSLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, COALESCE(tenant_id, ''), COALESCE(tenant_name, ''), phone, message_type,
		       message, status, COALESCE(error_message, ''), COALESCE(reference_id, ''),
		       COALESCE(cost, 0), created_at, delivered_at
		FROM sms_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, mapError(err, "sms log", "")
	}
	defer rows.Close()

	var logs []*models.SMSLog
	for rows.Next() {
		l := &models.SMSLog{}
		err := rows.Scan(
			&l.ID,
			&l.TenantID,
			&l.TenantName,
			&l.Phone,
			&l.MessageType,
			&l.Message,
			&l.Status,
			&l.ErrorMessage,
			&l.ReferenceID,
			&l.Cost,
			&l.CreatedAt,
			&l.DeliveredAt,
		)
		if err != nil {
			return nil, mapError(err, "sms log", "")
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "sms log", "")
	}
	return logs, nil
}
