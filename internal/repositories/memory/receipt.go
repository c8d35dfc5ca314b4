package memory

import (
	"context"
	"sort"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type receiptRepo struct {
	locker
	items map[string]*models.RentReceipt
	quota *quota
}

func cloneReceipt(rc *models.RentReceipt) *models.RentReceipt {
	cp := *rc
	return &cp
}

func (r *receiptRepo) GetAll(ctx context.Context) ([]*models.RentReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RentReceipt, 0, len(r.items))
	for _, rc := range r.items {
		out = append(out, cloneReceipt(rc))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.Before(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *receiptRepo) GetByID(ctx context.Context, id string) (*models.RentReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("rent receipt", id)
	}
	return cloneReceipt(rc), nil
}

func (r *receiptRepo) GetByPaymentID(ctx context.Context, paymentID string) (*models.RentReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rc := range r.items {
		if rc.PaymentID == paymentID {
			return cloneReceipt(rc), nil
		}
	}
	return nil, apperrors.NewNotFound("rent receipt", paymentID)
}

func (r *receiptRepo) Save(ctx context.Context, receipt *models.RentReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[receipt.ID]; !exists {
		if err := r.quota.check("rent_receipts", len(r.items)); err != nil {
			return err
		}
	}
	r.items[receipt.ID] = cloneReceipt(receipt)
	return nil
}

func (r *receiptRepo) DeleteByPaymentID(ctx context.Context, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rc := range r.items {
		if rc.PaymentID == paymentID {
			delete(r.items, id)
		}
	}
	return nil
}
