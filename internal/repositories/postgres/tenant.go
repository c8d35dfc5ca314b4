package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
)

type tenantStore struct {
	DB *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) repositories.TenantRepository {
	return &tenantStore{DB: db}
}

const tenantColumns = `
	id, name, phone, COALESCE(email, ''), property_id, property_type,
	COALESCE(unit_id, ''), rent_amount, rent_due_date, security_deposit,
	payment_method, is_active, move_in_date, move_out_date, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Phone,
		&t.Email,
		&t.PropertyID,
		&t.PropertyType,
		&t.UnitID,
		&t.RentalAgreement.RentAmount,
		&t.RentalAgreement.RentDueDate,
		&t.RentalAgreement.SecurityDeposit,
		&t.RentalAgreement.PaymentMethod,
		&t.IsActive,
		&t.MoveInDate,
		&t.MoveOutDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantStore) GetAll(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "tenant", "")
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, mapError(err, "tenant", "")
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "tenant", "")
	}
	return tenants, nil
}

func (r *tenantStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "tenant", id)
	}
	return t, nil
}

func (r *tenantStore) GetByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`
	t, err := scanTenant(r.DB.QueryRow(ctx, query, phone))
	if err != nil {
		return nil, mapError(err, "tenant", phone)
	}
	return t, nil
}

func (r *tenantStore) Save(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, phone, email, property_id, property_type, unit_id,
			rent_amount, rent_due_date, security_deposit, payment_method, is_active,
			move_in_date, move_out_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.DB.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Phone,
		tenant.Email,
		tenant.PropertyID,
		tenant.PropertyType,
		tenant.UnitID,
		tenant.RentalAgreement.RentAmount,
		tenant.RentalAgreement.RentDueDate,
		tenant.RentalAgreement.SecurityDeposit,
		tenant.RentalAgreement.PaymentMethod,
		tenant.IsActive,
		tenant.MoveInDate,
		tenant.MoveOutDate,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	return mapError(err, "tenant", tenant.ID)
}

func (r *tenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, phone = $3, email = $4, property_id = $5, property_type = $6,
		    unit_id = $7, rent_amount = $8, rent_due_date = $9, security_deposit = $10,
		    payment_method = $11, is_active = $12, move_in_date = $13, move_out_date = $14,
		    updated_at = $15
		WHERE id = $1
	`
	tag, err := r.DB.Exec(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Phone,
		tenant.Email,
		tenant.PropertyID,
		tenant.PropertyType,
		tenant.UnitID,
		tenant.RentalAgreement.RentAmount,
		tenant.RentalAgreement.RentDueDate,
		tenant.RentalAgreement.SecurityDeposit,
		tenant.RentalAgreement.PaymentMethod,
		tenant.IsActive,
		tenant.MoveInDate,
		tenant.MoveOutDate,
		tenant.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "tenant", tenant.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "tenant", tenant.ID)
	}
	return nil
}

func (r *tenantStore) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "tenant", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "tenant", id)
	}
	return nil
}
