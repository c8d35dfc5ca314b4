package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type userStore struct {
	DB *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) repositories.UserRepository {
	return &userStore{DB: db}
}

const userColumns = `
	id, name, email, COALESCE(phone, ''), password_hash, role,
	totp_enabled, COALESCE(totp_secret, ''), is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.TOTPEnabled,
		&u.TOTPSecret,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userStore) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "user", "")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err, "user", "")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "user", "")
	}
	return users, nil
}

func (r *userStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "user", id)
	}
	return u, nil
}

func (r *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.DB.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapError(err, "user", email)
	}
	return u, nil
}

func (r *userStore) Save(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, password_hash, role, totp_enabled,
			totp_secret, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.DB.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.TOTPEnabled,
		user.TOTPSecret,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err, "user", user.ID)
}

func (r *userStore) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, phone = $4, password_hash = $5, role = $6,
		    totp_enabled = $7, totp_secret = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.TOTPEnabled,
		user.TOTPSecret,
		user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "user", user.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", user.ID)
	}
	return nil
}

func (r *userStore) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", id)
	}
	return nil
}

func (r *userStore) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	query := `UPDATE users SET totp_secret = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.DB.Exec(ctx, query, userID, secret, time.Now())
	if err != nil {
		return mapError(err, "user", userID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", userID)
	}
	return nil
}

func (r *userStore) SetTOTPEnabled(ctx context.Context, userID string, enabled bool) error {
	query := `
		UPDATE users
		SET totp_enabled = $2,
		    totp_secret = CASE WHEN $2 THEN totp_secret ELSE '' END,
		    updated_at = $3
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query, userID, enabled, time.Now())
	if err != nil {
		return mapError(err, "user", userID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", userID)
	}
	return nil
}
