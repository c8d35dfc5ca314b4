package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type totpStore struct {
	DB *pgxpool.Pool
}

func NewTOTPStore(db *pgxpool.Pool) repositories.TOTPRepository {
	return &totpStore{DB: db}
}

// ReplaceBackupCodes deletes a user's existing codes and inserts the new set
// in one transaction
func (r *totpStore) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return mapError(err, "backup code", userID)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM totp_backup_codes WHERE user_id = $1`, userID); err != nil {
		return mapError(err, "backup code", userID)
	}
	for _, hash := range hashes {
		_, err := tx.Exec(ctx,
			`INSERT INTO totp_backup_codes (id, user_id, code_hash, used, created_at)
			 VALUES ($1, $2, $3, false, NOW())`,
			uuid.NewString(), userID, hash)
		if err != nil {
			return mapError(err, "backup code", userID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit backup codes: %w", err)
	}
	return nil
}

func (r *totpStore) GetUnusedBackupCodes(ctx context.Context, userID string) ([]*models.TOTPBackupCode, error) {
	query := `
		SELECT id, user_id, code_hash, used, used_at, created_at
		FROM totp_backup_codes
		WHERE user_id = $1 AND used = false
	`
	rows, err := r.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError(err, "backup code", userID)
	}
	defer rows.Close()

	var codes []*models.TOTPBackupCode
	for rows.Next() {
		c := &models.TOTPBackupCode{}
		err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Used, &c.UsedAt, &c.CreatedAt)
		if err != nil {
			return nil, mapError(err, "backup code", "")
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "backup code", "")
	}
	return codes, nil
}

func (r *totpStore) MarkBackupCodeUsed(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE totp_backup_codes SET used = true, used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "backup code", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "backup code", id)
	}
	return nil
}
