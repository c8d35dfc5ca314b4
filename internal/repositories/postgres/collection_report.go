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

type collectionReportStore struct {
	DB *pgxpool.Pool
}

func NewCollectionReportStore(db *pgxpool.Pool) repositories.CollectionReportRepository {
	return &collectionReportStore{DB: db}
}

const collectionReportColumns = `
	id, report_type, period_start, period_end, total_expected_rent,
	total_collected_rent, total_outstanding_rent, collection_rate, total_payments,
	COALESCE(property_breakdown, '[]'::jsonb), COALESCE(tenant_breakdown, '[]'::jsonb),
	COALESCE(method_breakdown, '[]'::jsonb), generated_at`

func scanCollectionReport(row pgx.Row) (*models.RentCollectionReport, error) {
	rep := &models.RentCollectionReport{}
	var propertyJSON, tenantJSON, methodJSON []byte
	err := row.Scan(
		&rep.ID,
		&rep.ReportType,
		&rep.Period.StartDate,
		&rep.Period.EndDate,
		&rep.TotalExpectedRent,
		&rep.TotalCollectedRent,
		&rep.TotalOutstandingRent,
		&rep.CollectionRate,
		&rep.TotalPayments,
		&propertyJSON,
		&tenantJSON,
		&methodJSON,
		&rep.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(propertyJSON, &rep.PropertyBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode property breakdown: %w", err)
	}
	if err := json.Unmarshal(tenantJSON, &rep.TenantBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode tenant breakdown: %w", err)
	}
	if err := json.Unmarshal(methodJSON, &rep.PaymentMethodBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode payment method breakdown: %w", err)
	}
	return rep, nil
}

func (r *collectionReportStore) GetAll(ctx context.Context) ([]*models.RentCollectionReport, error) {
	query := `SELECT ` + collectionReportColumns + ` FROM collection_reports ORDER BY generated_at, id`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, mapError(err, "collection report", "")
	}
	defer rows.Close()

	var reports []*models.RentCollectionReport
	for rows.Next() {
		rep, err := scanCollectionReport(rows)
		if err != nil {
			return nil, mapError(err, "collection report", "")
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "collection report", "")
	}
	return reports, nil
}

func (r *collectionReportStore) GetByID(ctx context.Context, id string) (*models.RentCollectionReport, error) {
	query := `SELECT ` + collectionReportColumns + ` FROM collection_reports WHERE id = $1`
	rep, err := scanCollectionReport(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "collection report", id)
	}
	return rep, nil
}

func (r *collectionReportStore) Save(ctx context.Context, report *models.RentCollectionReport) error {
	propertyJSON, err := json.Marshal(report.PropertyBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode property breakdown: %w", err)
	}
	tenantJSON, err := json.Marshal(report.TenantBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode tenant breakdown: %w", err)
	}
	methodJSON, err := json.Marshal(report.PaymentMethodBreakdown)
	if err != nil {
		return fmt.Errorf("failed to encode payment method breakdown: %w", err)
	}
	query := `
		INSERT INTO collection_reports (id, report_type, period_start, period_end,
			total_expected_rent, total_collected_rent, total_outstanding_rent,
			collection_rate, total_payments, property_breakdown, tenant_breakdown,
			method_breakdown, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.DB.Exec(ctx, query,
		report.ID,
		report.ReportType,
		report.Period.StartDate,
		report.Period.EndDate,
		report.TotalExpectedRent,
		report.TotalCollectedRent,
		report.TotalOutstandingRent,
		report.CollectionRate,
		report.TotalPayments,
		propertyJSON,
		tenantJSON,
		methodJSON,
		report.GeneratedAt,
	)
	return mapError(err, "collection report", report.ID)
}
