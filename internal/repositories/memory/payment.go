package memory

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type paymentRepo struct {
	locker
	items   map[string]*models.RentPayment
	quota   *quota
	receipt atomic.Int64
}

func clonePayment(p *models.RentPayment) *models.RentPayment {
	cp := *p
	if p.PaidDate != nil {
		d := *p.PaidDate
		cp.PaidDate = &d
	}
	return &cp
}

func sortPayments(out []*models.RentPayment) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (r *paymentRepo) GetAll(ctx context.Context) ([]*models.RentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RentPayment, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, clonePayment(p))
	}
	sortPayments(out)
	return out, nil
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*models.RentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("rent payment", id)
	}
	return clonePayment(p), nil
}

func (r *paymentRepo) Save(ctx context.Context, payment *models.RentPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[payment.ID]; !exists {
		if err := r.quota.check("rent_payments", len(r.items)); err != nil {
			return err
		}
	}
	r.items[payment.ID] = clonePayment(payment)
	return nil
}

func (r *paymentRepo) Update(ctx context.Context, payment *models.RentPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[payment.ID]; !ok {
		return apperrors.NewNotFound("rent payment", payment.ID)
	}
	r.items[payment.ID] = clonePayment(payment)
	return nil
}

func (r *paymentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("rent payment", id)
	}
	delete(r.items, id)
	return nil
}

func (r *paymentRepo) GetByTenant(ctx context.Context, tenantID string) ([]*models.RentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.RentPayment
	for _, p := range r.items {
		if p.TenantID == tenantID {
			out = append(out, clonePayment(p))
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *paymentRepo) GetByStatus(ctx context.Context, status models.PaymentStatus) ([]*models.RentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.RentPayment
	for _, p := range r.items {
		if p.Status == status {
			out = append(out, clonePayment(p))
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *paymentRepo) GetByDueDateRange(ctx context.Context, start, end time.Time) ([]*models.RentPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.RentPayment
	for _, p := range r.items {
		if !p.DueDate.Before(start) && !p.DueDate.After(end) {
			out = append(out, clonePayment(p))
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *paymentRepo) NextReceiptSeq(ctx context.Context) (int64, error) {
	return r.receipt.Add(1), nil
}
