package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type systemSettingStore struct {
	DB *pgxpool.Pool
}

func NewSystemSettingStore(db *pgxpool.Pool) repositories.SystemSettingRepository {
	return &systemSettingStore{DB: db}
}

func (r *systemSettingStore) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, COALESCE(description, ''), updated_at, COALESCE(updated_by_user_id, '')
		FROM system_settings
		WHERE setting_key = $1
	`
	setting := &models.SystemSetting{}
	err := r.DB.QueryRow(ctx, query, key).Scan(
		&setting.ID,
		&setting.SettingKey,
		&setting.SettingValue,
		&setting.Description,
		&setting.UpdatedAt,
		&setting.UpdatedByUserID,
	)
	if err != nil {
		return nil, mapError(err, "system setting", key)
	}
	return setting, nil
}

func (r *systemSettingStore) List(ctx context.Context) ([]*models.SystemSetting, error) {
	query := `
		SELECT id, setting_key, setting_value, COALESCE(description, ''), updated_at, COALESCE(updated_by_user_id, '')
		FROM system_settings
		ORDER BY setting_key
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "system setting", "")
	}
	defer rows.Close()

	var settings []*models.SystemSetting
	for rows.Next() {
		setting := &models.SystemSetting{}
		err := rows.Scan(
			&setting.ID,
			&setting.SettingKey,
			&setting.SettingValue,
			&setting.Description,
			&setting.UpdatedAt,
			&setting.UpdatedByUserID,
		)
		if err != nil {
			return nil, mapError(err, "system setting", "")
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "system setting", "")
	}
	return settings, nil
}

func (r *systemSettingStore) Update(ctx context.Context, key, value, userID string) error {
	query := `
		UPDATE system_settings
		SET setting_value = $1, updated_at = CURRENT_TIMESTAMP, updated_by_user_id = $2
		WHERE setting_key = $3
	`
	tag, err := r.DB.Exec(ctx, query, value, userID, key)
	if err != nil {
		return mapError(err, "system setting", key)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "system setting", key)
	}
	return nil
}

func (r *systemSettingStore) Upsert(ctx context.Context, key, value, description, userID string) error {
	query := `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at, updated_by_user_id)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, $4)
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2, description = $3, updated_at = CURRENT_TIMESTAMP, updated_by_user_id = $4
	`
	_, err := r.DB.Exec(ctx, query, key, value, description, userID)
	return mapError(err, "system setting", key)
}
