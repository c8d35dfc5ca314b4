package memory

import (
	"context"
	"sort"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type reportRepo struct {
	locker
	items map[string]*models.RentCollectionReport
	quota *quota
}

func cloneReport(rep *models.RentCollectionReport) *models.RentCollectionReport {
	cp := *rep
	cp.PropertyBreakdown = append([]models.PropertyCollection(nil), rep.PropertyBreakdown...)
	cp.PaymentMethodBreakdown = append([]models.PaymentMethodCollection(nil), rep.PaymentMethodBreakdown...)
	cp.TenantBreakdown = make([]models.TenantCollection, len(rep.TenantBreakdown))
	for i, tc := range rep.TenantBreakdown {
		cp.TenantBreakdown[i] = tc
		cp.TenantBreakdown[i].Payments = append([]models.RentPayment(nil), tc.Payments...)
	}
	return &cp
}

func (r *reportRepo) GetAll(ctx context.Context) ([]*models.RentCollectionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RentCollectionReport, 0, len(r.items))
	for _, rep := range r.items {
		out = append(out, cloneReport(rep))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.Before(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*models.RentCollectionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("collection report", id)
	}
	return cloneReport(rep), nil
}

func (r *reportRepo) Save(ctx context.Context, report *models.RentCollectionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[report.ID]; !exists {
		if err := r.quota.check("collection_reports", len(r.items)); err != nil {
			return err
		}
	}
	r.items[report.ID] = cloneReport(report)
	return nil
}
