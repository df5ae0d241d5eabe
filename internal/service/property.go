package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// PropertyService manages a client's properties, apartments and tenancy.
type PropertyService struct {
	store     database.Store
	snapshots SnapshotInvalidator
}

// NewPropertyService creates a property service.
func NewPropertyService(store database.Store, snapshots SnapshotInvalidator) *PropertyService {
	return &PropertyService{store: store, snapshots: snapshots}
}

func (s *PropertyService) CreateProperty(ctx context.Context, req *property.CreatePropertyRequest) (*property.Property, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &property.Property{Name: req.Name, PropertyType: req.PropertyType, Address: req.Address}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	return p, nil
}

func (s *PropertyService) ListProperties(ctx context.Context, page domain.PageRequest) (domain.Page[property.Property], error) {
	items, total, err := s.store.ListProperties(ctx, page)
	if err != nil {
		return domain.Page[property.Property]{}, fmt.Errorf("list properties: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

func (s *PropertyService) CreateApartment(ctx context.Context, propertyID string, req *property.CreateApartmentRequest) (*property.Apartment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPropertyByExternalID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("create apartment: %w", err)
	}
	a := &property.Apartment{
		PropertyID:   p.ID,
		PropertyName: p.Name,
		Floor:        req.Floor,
		Door:         req.Door,
		Size:         req.Size,
		Rooms:        req.Rooms,
	}
	if err := s.store.CreateApartment(ctx, a); err != nil {
		return nil, fmt.Errorf("create apartment: %w", err)
	}
	return a, nil
}

func (s *PropertyService) ListApartments(ctx context.Context, propertyID string) ([]property.Apartment, error) {
	p, err := s.store.GetPropertyByExternalID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	apts, err := s.store.ListApartments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	if apts == nil {
		apts = []property.Apartment{}
	}
	return apts, nil
}

// DeleteApartment removes a vacant apartment of the given property.
func (s *PropertyService) DeleteApartment(ctx context.Context, propertyID, apartmentID string) error {
	p, err := s.store.GetPropertyByExternalID(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("delete apartment: %w", err)
	}
	a, err := s.store.GetApartmentByExternalID(ctx, apartmentID)
	if err != nil {
		return fmt.Errorf("delete apartment: %w", err)
	}
	if a.PropertyID != p.ID {
		return fmt.Errorf("delete apartment %s: %w", apartmentID, domain.ErrNotFound)
	}
	if a.Occupied() {
		return fmt.Errorf("delete apartment: %w: apartment is occupied", domain.ErrConflict)
	}
	return s.store.DeleteApartment(ctx, a.ID)
}

// AssignHome moves a tenant into an apartment with new lease terms, vacating
// the tenant's previous apartment.
func (s *PropertyService) AssignHome(ctx context.Context, tenantID string, req *property.AssignHomeRequest) (*property.Apartment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.GetUserByExternalID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("assign home: %w", err)
	}
	if t.Role != user.RoleTenant {
		return nil, domain.Invalid("user is not a tenant")
	}
	a, err := s.store.GetApartmentByExternalID(ctx, req.ApartmentID)
	if err != nil {
		return nil, fmt.Errorf("assign home: %w", err)
	}
	if err := s.store.AssignTenant(ctx, t.ID, a.ID, req.Lease()); err != nil {
		return nil, fmt.Errorf("assign home: %w", err)
	}
	s.snapshots.Invalidate(ctx, t.ID)
	return s.store.GetApartment(ctx, a.ID)
}
