package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type tenantOTPStore struct {
	DB *pgxpool.Pool
}

func NewTenantOTPStore(db *pgxpool.Pool) repositories.TenantOTPRepository {
	return &tenantOTPStore{DB: db}
}

func (r *tenantOTPStore) Create(ctx context.Context, otp *models.TenantOTP) error {
	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tenant_otps (id, phone, otp_code, expires_at, verified, attempts, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.DB.Exec(ctx, query,
		otp.ID,
		otp.Phone,
		otp.OTPCode,
		otp.ExpiresAt,
		otp.Verified,
		otp.Attempts,
		otp.IPAddress,
		otp.CreatedAt,
	)
	return mapError(err, "login code", otp.ID)
}

func (r *tenantOTPStore) GetLatestByPhone(ctx context.Context, phone string) (*models.TenantOTP, error) {
	query := `
		SELECT id, phone, otp_code, expires_at, verified, verified_at, attempts,
		       COALESCE(ip_address, ''), created_at
		FROM tenant_otps
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	o := &models.TenantOTP{}
	err := r.DB.QueryRow(ctx, query, phone).Scan(
		&o.ID,
		&o.Phone,
		&o.OTPCode,
		&o.ExpiresAt,
		&o.Verified,
		&o.VerifiedAt,
		&o.Attempts,
		&o.IPAddress,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, "login code", phone)
	}
	return o, nil
}

func (r *tenantOTPStore) IncrementAttempts(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tenant_otps SET attempts = attempts + 1 WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "login code", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "login code", id)
	}
	return nil
}

func (r *tenantOTPStore) MarkVerified(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tenant_otps SET verified = true, verified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "login code", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "login code", id)
	}
	return nil
}

func (r *tenantOTPStore) CountRecentRequests(ctx context.Context, phone string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tenant_otps
		WHERE phone = $1 AND created_at > NOW() - make_interval(secs => $2)
	`
	var count int
	err := r.DB.QueryRow(ctx, query, phone, window.Seconds()).Scan(&count)
	if err != nil {
		return 0, mapError(err, "login code", phone)
	}
	return count, nil
}
