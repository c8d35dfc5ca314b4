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

type propertyStore struct {
	DB *pgxpool.Pool
}

func NewPropertyStore(db *pgxpool.Pool) repositories.PropertyRepository {
	return &propertyStore{DB: db}
}

func scanBuilding(row pgx.Row) (*models.Building, error) {
	b := &models.Building{}
	var apartments []byte
	err := row.Scan(&b.ID, &b.Name, &b.Address, &apartments, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(apartments) > 0 {
		if err := json.Unmarshal(apartments, &b.Apartments); err != nil {
			return nil, fmt.Errorf("failed to decode apartments: %w", err)
		}
	}
	return b, nil
}

func (r *propertyStore) GetBuildingByID(ctx context.Context, id string) (*models.Building, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), COALESCE(apartments, '[]'::jsonb), created_at, updated_at
		FROM buildings WHERE id = $1
	`
	b, err := scanBuilding(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "building", id)
	}
	return b, nil
}

func (r *propertyStore) GetFlatByID(ctx context.Context, id string) (*models.Flat, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), is_occupied, COALESCE(current_tenant_id, ''), created_at, updated_at
		FROM flats WHERE id = $1
	`
	f := &models.Flat{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.Address, &f.IsOccupied, &f.CurrentTenantID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "flat", id)
	}
	return f, nil
}

func (r *propertyStore) GetLandByID(ctx context.Context, id string) (*models.Land, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), is_occupied, COALESCE(current_tenant_id, ''), created_at, updated_at
		FROM lands WHERE id = $1
	`
	l := &models.Land{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.IsOccupied, &l.CurrentTenantID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "land", id)
	}
	return l, nil
}

func (r *propertyStore) ListBuildings(ctx context.Context) ([]*models.Building, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), COALESCE(apartments, '[]'::jsonb), created_at, updated_at
		FROM buildings ORDER BY name
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "building", "")
	}
	defer rows.Close()

	var buildings []*models.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, mapError(err, "building", "")
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "building", "")
	}
	return buildings, nil
}

func (r *propertyStore) ListFlats(ctx context.Context) ([]*models.Flat, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), is_occupied, COALESCE(current_tenant_id, ''), created_at, updated_at
		FROM flats ORDER BY name
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "flat", "")
	}
	defer rows.Close()

	var flats []*models.Flat
	for rows.Next() {
		f := &models.Flat{}
		err := rows.Scan(&f.ID, &f.Name, &f.Address, &f.IsOccupied, &f.CurrentTenantID, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, mapError(err, "flat", "")
		}
		flats = append(flats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "flat", "")
	}
	return flats, nil
}

func (r *propertyStore) ListLands(ctx context.Context) ([]*models.Land, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), is_occupied, COALESCE(current_tenant_id, ''), created_at, updated_at
		FROM lands ORDER BY name
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "land", "")
	}
	defer rows.Close()

	var lands []*models.Land
	for rows.Next() {
		l := &models.Land{}
		err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.IsOccupied, &l.CurrentTenantID, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, mapError(err, "land", "")
		}
		lands = append(lands, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "land", "")
	}
	return lands, nil
}

func (r *propertyStore) SaveBuilding(ctx context.Context, b *models.Building) error {
	apartments, err := json.Marshal(b.Apartments)
	if err != nil {
		return fmt.Errorf("failed to encode apartments: %w", err)
	}
	query := `
		INSERT INTO buildings (id, name, address, apartments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.DB.Exec(ctx, query, b.ID, b.Name, b.Address, apartments, b.CreatedAt, b.UpdatedAt)
	return mapError(err, "building", b.ID)
}

func (r *propertyStore) SaveFlat(ctx context.Context, f *models.Flat) error {
	query := `
		INSERT INTO flats (id, name, address, is_occupied, current_tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.Exec(ctx, query, f.ID, f.Name, f.Address, f.IsOccupied, f.CurrentTenantID, f.CreatedAt, f.UpdatedAt)
	return mapError(err, "flat", f.ID)
}

func (r *propertyStore) SaveLand(ctx context.Context, l *models.Land) error {
	query := `
		INSERT INTO lands (id, name, address, is_occupied, current_tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.Exec(ctx, query, l.ID, l.Name, l.Address, l.IsOccupied, l.CurrentTenantID, l.CreatedAt, l.UpdatedAt)
	return mapError(err, "land", l.ID)
}

func (r *propertyStore) UpdateBuilding(ctx context.Context, b *models.Building) error {
	apartments, err := json.Marshal(b.Apartments)
	if err != nil {
		return fmt.Errorf("failed to encode apartments: %w", err)
	}
	query := `UPDATE buildings SET name = $2, address = $3, apartments = $4, updated_at = $5 WHERE id = $1`
	tag, err := r.DB.Exec(ctx, query, b.ID, b.Name, b.Address, apartments, b.UpdatedAt)
	if err != nil {
		return mapError(err, "building", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "building", b.ID)
	}
	return nil
}

func (r *propertyStore) UpdateFlat(ctx context.Context, f *models.Flat) error {
	query := `UPDATE flats SET name = $2, address = $3, is_occupied = $4, current_tenant_id = $5, updated_at = $6 WHERE id = $1`
	tag, err := r.DB.Exec(ctx, query, f.ID, f.Name, f.Address, f.IsOccupied, f.CurrentTenantID, f.UpdatedAt)
	if err != nil {
		return mapError(err, "flat", f.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "flat", f.ID)
	}
	return nil
}

func (r *propertyStore) UpdateLand(ctx context.Context, l *models.Land) error {
	query := `UPDATE lands SET name = $2, address = $3, is_occupied = $4, current_tenant_id = $5, updated_at = $6 WHERE id = $1`
	tag, err := r.DB.Exec(ctx, query, l.ID, l.Name, l.Address, l.IsOccupied, l.CurrentTenantID, l.UpdatedAt)
	if err != nil {
		return mapError(err, "land", l.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "land", l.ID)
	}
	return nil
}
