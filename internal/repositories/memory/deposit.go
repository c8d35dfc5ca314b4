package memory

import (
	"context"
	"sort"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type depositRepo struct {
	locker
	items map[string]*models.SecurityDeposit
	quota *quota
}

func cloneDeposit(d *models.SecurityDeposit) *models.SecurityDeposit {
	cp := *d
	if d.RefundDate != nil {
		t := *d.RefundDate
		cp.RefundDate = &t
	}
	if d.RefundAmount != nil {
		a := *d.RefundAmount
		cp.RefundAmount = &a
	}
	cp.Deductions = make([]models.SecurityDepositDeduction, len(d.Deductions))
	for i, ded := range d.Deductions {
		cp.Deductions[i] = ded
		cp.Deductions[i].Documents = append([]string(nil), ded.Documents...)
	}
	return &cp
}

func (r *depositRepo) GetAll(ctx context.Context) ([]*models.SecurityDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.SecurityDeposit, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, cloneDeposit(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *depositRepo) GetByID(ctx context.Context, id string) (*models.SecurityDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("security deposit", id)
	}
	return cloneDeposit(d), nil
}

// GetByTenantID returns the tenant's most recent deposit; a tenant who moved
// out and back in can have terminal deposits behind the active one.
func (r *depositRepo) GetByTenantID(ctx context.Context, tenantID string) (*models.SecurityDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.SecurityDeposit
	for _, d := range r.items {
		if d.TenantID != tenantID {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) ||
			(d.CreatedAt.Equal(latest.CreatedAt) && d.ID > latest.ID) {
			latest = d
		}
	}
	if latest == nil {
		return nil, apperrors.NewNotFound("security deposit", tenantID)
	}
	return cloneDeposit(latest), nil
}

func (r *depositRepo) Save(ctx context.Context, deposit *models.SecurityDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[deposit.ID]; !exists {
		if err := r.quota.check("security_deposits", len(r.items)); err != nil {
			return err
		}
	}
	r.items[deposit.ID] = cloneDeposit(deposit)
	return nil
}

func (r *depositRepo) Update(ctx context.Context, deposit *models.SecurityDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[deposit.ID]; !ok {
		return apperrors.NewNotFound("security deposit", deposit.ID)
	}
	r.items[deposit.ID] = cloneDeposit(deposit)
	return nil
}
