package memory

import (
	"context"
	"sort"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/models"
)

type tenantRepo struct {
	locker
	items map[string]*models.Tenant
	quota *quota
}

func cloneTenant(t *models.Tenant) *models.Tenant {
	cp := *t
	if t.MoveOutDate != nil {
		d := *t.MoveOutDate
		cp.MoveOutDate = &d
	}
	return &cp
}

func (r *tenantRepo) GetAll(ctx context.Context) ([]*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, cloneTenant(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("tenant", id)
	}
	return cloneTenant(t), nil
}

func (r *tenantRepo) GetByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.items {
		if t.Phone == phone {
			return cloneTenant(t), nil
		}
	}
	return nil, apperrors.NewNotFound("tenant", phone)
}

func (r *tenantRepo) Save(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[tenant.ID]; !exists {
		if err := r.quota.check("tenants", len(r.items)); err != nil {
			return err
		}
	}
	r.items[tenant.ID] = cloneTenant(tenant)
	return nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tenant.ID]; !ok {
		return apperrors.NewNotFound("tenant", tenant.ID)
	}
	r.items[tenant.ID] = cloneTenant(tenant)
	return nil
}

func (r *tenantRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("tenant", id)
	}
	delete(r.items, id)
	return nil
}

type propertyRepo struct {
	locker
	buildings map[string]*models.Building
	flats     map[string]*models.Flat
	lands     map[string]*models.Land
	quota     *quota
}

func cloneBuilding(b *models.Building) *models.Building {
	cp := *b
	cp.Apartments = append([]models.Apartment(nil), b.Apartments...)
	return &cp
}

func (r *propertyRepo) GetBuildingByID(ctx context.Context, id string) (*models.Building, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buildings[id]
	if !ok {
		return nil, apperrors.NewNotFound("building", id)
	}
	return cloneBuilding(b), nil
}

func (r *propertyRepo) GetFlatByID(ctx context.Context, id string) (*models.Flat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flats[id]
	if !ok {
		return nil, apperrors.NewNotFound("flat", id)
	}
	cp := *f
	return &cp, nil
}

func (r *propertyRepo) GetLandByID(ctx context.Context, id string) (*models.Land, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lands[id]
	if !ok {
		return nil, apperrors.NewNotFound("land", id)
	}
	cp := *l
	return &cp, nil
}

func (r *propertyRepo) ListBuildings(ctx context.Context) ([]*models.Building, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Building, 0, len(r.buildings))
	for _, b := range r.buildings {
		out = append(out, cloneBuilding(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *propertyRepo) ListFlats(ctx context.Context) ([]*models.Flat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Flat, 0, len(r.flats))
	for _, f := range r.flats {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *propertyRepo) ListLands(ctx context.Context) ([]*models.Land, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Land, 0, len(r.lands))
	for _, l := range r.lands {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *propertyRepo) SaveBuilding(ctx context.Context, b *models.Building) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.quota.check("buildings", len(r.buildings)); err != nil {
		return err
	}
	r.buildings[b.ID] = cloneBuilding(b)
	return nil
}

func (r *propertyRepo) SaveFlat(ctx context.Context, f *models.Flat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.quota.check("flats", len(r.flats)); err != nil {
		return err
	}
	cp := *f
	r.flats[f.ID] = &cp
	return nil
}

func (r *propertyRepo) SaveLand(ctx context.Context, l *models.Land) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.quota.check("lands", len(r.lands)); err != nil {
		return err
	}
	cp := *l
	r.lands[l.ID] = &cp
	return nil
}

func (r *propertyRepo) UpdateBuilding(ctx context.Context, b *models.Building) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buildings[b.ID]; !ok {
		return apperrors.NewNotFound("building", b.ID)
	}
	r.buildings[b.ID] = cloneBuilding(b)
	return nil
}

func (r *propertyRepo) UpdateFlat(ctx context.Context, f *models.Flat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flats[f.ID]; !ok {
		return apperrors.NewNotFound("flat", f.ID)
	}
	cp := *f
	r.flats[f.ID] = &cp
	return nil
}

func (r *propertyRepo) UpdateLand(ctx context.Context, l *models.Land) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lands[l.ID]; !ok {
		return apperrors.NewNotFound("land", l.ID)
	}
	cp := *l
	r.lands[l.ID] = &cp
	return nil
}
