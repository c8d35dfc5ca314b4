package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/timeutil"
)

// DirectoryService manages the tenant and property registers and resolves
// directory records into display snapshots for receipts.
type DirectoryService struct {
	Store *repositories.Store

	nowFn func() time.Time
}

func NewDirectoryService(store *repositories.Store) *DirectoryService {
	return &DirectoryService{
		Store: store,
		nowFn: timeutil.Now,
	}
}

// CreateTenant registers a tenant. Phone numbers double as portal login
// identifiers, so duplicates are rejected up front.
func (s *DirectoryService) CreateTenant(ctx context.Context, req *models.CreateTenantRequest) (*models.Tenant, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}
	if req.Phone == "" {
		return nil, apperrors.NewValidation("phone", "phone is required")
	}
	if req.PropertyType != "" && !req.PropertyType.IsValid() {
		return nil, apperrors.NewValidation("property_type", "unknown property type")
	}
	if req.RentalAgreement.RentAmount < 0 {
		return nil, apperrors.NewValidation("rental_agreement.rent_amount", "rent amount cannot be negative")
	}
	if d := req.RentalAgreement.RentDueDate; d < 1 || d > 31 {
		return nil, apperrors.NewValidation("rental_agreement.rent_due_date", "rent due day must be between 1 and 31")
	}

	if existing, err := s.Store.Tenants.GetByPhone(ctx, req.Phone); err == nil && existing != nil {
		return nil, apperrors.NewValidation("phone", "phone is already registered to another tenant")
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	now := s.nowFn()
	tenant := &models.Tenant{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		PropertyID:      req.PropertyID,
		PropertyType:    req.PropertyType,
		UnitID:          req.UnitID,
		RentalAgreement: req.RentalAgreement,
		IsActive:        true,
		MoveInDate:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Store.Tenants.Save(ctx, tenant); err != nil {
		return nil, err
	}
	cache.InvalidateTenantCaches(ctx)
	return tenant, nil
}

func (s *DirectoryService) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	return s.Store.Tenants.GetByID(ctx, id)
}

func (s *DirectoryService) GetTenantByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	return s.Store.Tenants.GetByPhone(ctx, phone)
}

func (s *DirectoryService) GetTenants(ctx context.Context) ([]*models.Tenant, error) {
	return s.Store.Tenants.GetAll(ctx)
}

// GetActiveTenants returns tenants eligible for billing and reminders
func (s *DirectoryService) GetActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.Store.Tenants.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*models.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

// UpdateTenant applies a partial update. Only fields present in the request
// are touched.
func (s *DirectoryService) UpdateTenant(ctx context.Context, id string, req *models.UpdateTenantRequest) (*models.Tenant, error) {
	tenant, err := s.Store.Tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.NewValidation("name", "name cannot be empty")
		}
		tenant.Name = *req.Name
	}
	if req.Phone != nil && *req.Phone != tenant.Phone {
		if *req.Phone == "" {
			return nil, apperrors.NewValidation("phone", "phone cannot be empty")
		}
		if existing, err := s.Store.Tenants.GetByPhone(ctx, *req.Phone); err == nil && existing != nil && existing.ID != id {
			return nil, apperrors.NewValidation("phone", "phone is already registered to another tenant")
		} else if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		tenant.Phone = *req.Phone
	}
	if req.Email != nil {
		tenant.Email = *req.Email
	}
	if req.PropertyID != nil {
		tenant.PropertyID = *req.PropertyID
	}
	if req.PropertyType != nil {
		if !req.PropertyType.IsValid() {
			return nil, apperrors.NewValidation("property_type", "unknown property type")
		}
		tenant.PropertyType = *req.PropertyType
	}
	if req.UnitID != nil {
		tenant.UnitID = *req.UnitID
	}
	if req.RentalAgreement != nil {
		if req.RentalAgreement.RentAmount < 0 {
			return nil, apperrors.NewValidation("rental_agreement.rent_amount", "rent amount cannot be negative")
		}
		if d := req.RentalAgreement.RentDueDate; d < 1 || d > 31 {
			return nil, apperrors.NewValidation("rental_agreement.rent_due_date", "rent due day must be between 1 and 31")
		}
		tenant.RentalAgreement = *req.RentalAgreement
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	tenant.UpdatedAt = s.nowFn()

	if err := s.Store.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	cache.InvalidateTenantCaches(ctx)
	return tenant, nil
}

func (s *DirectoryService) DeleteTenant(ctx context.Context, id string) error {
	if _, err := s.Store.Tenants.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.Store.Tenants.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateTenantCaches(ctx)
	return nil
}

func (s *DirectoryService) CreateBuilding(ctx context.Context, req *models.CreateBuildingRequest) (*models.Building, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}
	if req.Address == "" {
		return nil, apperrors.NewValidation("address", "address is required")
	}

	now := s.nowFn()
	building := &models.Building{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Address:    req.Address,
		Apartments: req.Apartments,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i := range building.Apartments {
		if building.Apartments[i].ID == "" {
			building.Apartments[i].ID = uuid.NewString()
		}
	}

	if err := s.Store.Properties.SaveBuilding(ctx, building); err != nil {
		return nil, err
	}
	cache.InvalidatePropertyCaches(ctx)
	return building, nil
}

func (s *DirectoryService) CreateFlat(ctx context.Context, req *models.CreateFlatRequest) (*models.Flat, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}
	if req.Address == "" {
		return nil, apperrors.NewValidation("address", "address is required")
	}

	now := s.nowFn()
	flat := &models.Flat{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Properties.SaveFlat(ctx, flat); err != nil {
		return nil, err
	}
	cache.InvalidatePropertyCaches(ctx)
	return flat, nil
}

func (s *DirectoryService) CreateLand(ctx context.Context, req *models.CreateLandRequest) (*models.Land, error) {
	if req.Name == "" {
		return nil, apperrors.NewValidation("name", "name is required")
	}
	if req.Address == "" {
		return nil, apperrors.NewValidation("address", "address is required")
	}

	now := s.nowFn()
	land := &models.Land{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Properties.SaveLand(ctx, land); err != nil {
		return nil, err
	}
	cache.InvalidatePropertyCaches(ctx)
	return land, nil
}

func (s *DirectoryService) GetBuildingByID(ctx context.Context, id string) (*models.Building, error) {
	return s.Store.Properties.GetBuildingByID(ctx, id)
}

func (s *DirectoryService) GetFlatByID(ctx context.Context, id string) (*models.Flat, error) {
	return s.Store.Properties.GetFlatByID(ctx, id)
}

func (s *DirectoryService) GetLandByID(ctx context.Context, id string) (*models.Land, error) {
	return s.Store.Properties.GetLandByID(ctx, id)
}

func (s *DirectoryService) ListBuildings(ctx context.Context) ([]*models.Building, error) {
	return s.Store.Properties.ListBuildings(ctx)
}

func (s *DirectoryService) ListFlats(ctx context.Context) ([]*models.Flat, error) {
	return s.Store.Properties.ListFlats(ctx)
}

func (s *DirectoryService) ListLands(ctx context.Context) ([]*models.Land, error) {
	return s.Store.Properties.ListLands(ctx)
}

// ResolveProperty turns a (type, id, unit) triple into the display snapshot
// stamped onto receipts. For buildings the unit must exist in the apartment
// list.
func (s *DirectoryService) ResolveProperty(ctx context.Context, propertyType models.PropertyType, propertyID, unitID string) (*models.PropertySnapshot, error) {
	switch propertyType {
	case models.PropertyTypeBuilding:
		building, err := s.Store.Properties.GetBuildingByID(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		snapshot := &models.PropertySnapshot{Name: building.Name, Address: building.Address}
		if unitID != "" {
			apt := findApartment(building, unitID)
			if apt == nil {
				return nil, apperrors.NewNotFound("apartment", unitID)
			}
			snapshot.UnitLabel = apt.UnitNumber
		}
		return snapshot, nil
	case models.PropertyTypeFlat:
		flat, err := s.Store.Properties.GetFlatByID(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		return &models.PropertySnapshot{Name: flat.Name, Address: flat.Address}, nil
	case models.PropertyTypeLand:
		land, err := s.Store.Properties.GetLandByID(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		return &models.PropertySnapshot{Name: land.Name, Address: land.Address}, nil
	default:
		return nil, apperrors.NewValidation("property_type", "unknown property type")
	}
}

// SetUnitOccupancy flips the occupancy flag on an apartment, flat or land
// plot. Passing occupied=false clears the current tenant link.
func (s *DirectoryService) SetUnitOccupancy(ctx context.Context, propertyType models.PropertyType, propertyID, unitID string, occupied bool, tenantID string) error {
	if !occupied {
		tenantID = ""
	}

	switch propertyType {
	case models.PropertyTypeBuilding:
		building, err := s.Store.Properties.GetBuildingByID(ctx, propertyID)
		if err != nil {
			return err
		}
		apt := findApartment(building, unitID)
		if apt == nil {
			return apperrors.NewNotFound("apartment", unitID)
		}
		apt.IsOccupied = occupied
		apt.CurrentTenantID = tenantID
		building.UpdatedAt = s.nowFn()
		if err := s.Store.Properties.UpdateBuilding(ctx, building); err != nil {
			return err
		}
	case models.PropertyTypeFlat:
		flat, err := s.Store.Properties.GetFlatByID(ctx, propertyID)
		if err != nil {
			return err
		}
		flat.IsOccupied = occupied
		flat.CurrentTenantID = tenantID
		flat.UpdatedAt = s.nowFn()
		if err := s.Store.Properties.UpdateFlat(ctx, flat); err != nil {
			return err
		}
	case models.PropertyTypeLand:
		land, err := s.Store.Properties.GetLandByID(ctx, propertyID)
		if err != nil {
			return err
		}
		land.IsOccupied = occupied
		land.CurrentTenantID = tenantID
		land.UpdatedAt = s.nowFn()
		if err := s.Store.Properties.UpdateLand(ctx, land); err != nil {
			return err
		}
	default:
		return apperrors.NewValidation("property_type", "unknown property type")
	}

	cache.InvalidatePropertyCaches(ctx)
	return nil
}

func findApartment(building *models.Building, unitID string) *models.Apartment {
	for i := range building.Apartments {
		if building.Apartments[i].ID == unitID {
			return &building.Apartments[i]
		}
	}
	return nil
}
