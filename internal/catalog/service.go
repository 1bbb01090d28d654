package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

// Service exposes catalogue reads for the storefront and writes for admins.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) (PhonePageDTO, error)
	Get(ctx context.Context, id uuid.UUID) (PhoneDTO, error)
	Brands(ctx context.Context) ([]string, error)
	Create(ctx context.Context, req CreatePhoneRequest) (PhoneDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdatePhoneRequest) (PhoneDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type phoneRepository interface {
	Create(ctx context.Context, phone *models.Phone) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Phone, error)
	Save(ctx context.Context, phone *models.Phone) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) (PhonePageDTO, error)
	Brands(ctx context.Context) ([]string, error)
}

type service struct {
	phones phoneRepository
}

// ServiceParams groups dependencies for the catalogue service.
type ServiceParams struct {
	PhoneRepo phoneRepository
}

// NewService builds a catalogue service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.PhoneRepo == nil {
		return nil, fmt.Errorf("phone repository is required")
	}
	return &service{phones: params.PhoneRepo}, nil
}

// List returns one page of active listings matching the filter.
func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (PhonePageDTO, error) {
	page, err := s.phones.List(ctx, filter, params)
	if err != nil {
		return PhonePageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list phones")
	}
	return page, nil
}

// Get loads a single active listing.
func (s *service) Get(ctx context.Context, id uuid.UUID) (PhoneDTO, error) {
	phone, err := s.load(ctx, id)
	if err != nil {
		return PhoneDTO{}, err
	}
	if !phone.IsActive {
		return PhoneDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "phone not found")
	}
	return FromModel(phone), nil
}

// Brands returns the distinct brands currently on offer.
func (s *service) Brands(ctx context.Context) ([]string, error) {
	brands, err := s.phones.Brands(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list brands")
	}
	return brands, nil
}

// Create inserts a new listing from an admin payload.
func (s *service) Create(ctx context.Context, req CreatePhoneRequest) (PhoneDTO, error) {
	if err := validateOptions(req.Variants, req.Colors); err != nil {
		return PhoneDTO{}, err
	}
	phone := req.toModel()
	if err := s.phones.Create(ctx, phone); err != nil {
		return PhoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create phone")
	}
	return FromModel(phone), nil
}

// Update applies a partial admin edit to an existing listing.
func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdatePhoneRequest) (PhoneDTO, error) {
	phone, err := s.load(ctx, id)
	if err != nil {
		return PhoneDTO{}, err
	}

	if req.Brand != nil {
		phone.Brand = *req.Brand
	}
	if req.Name != nil {
		phone.Name = *req.Name
	}
	if req.Description != nil {
		phone.Description = req.Description
	}
	if req.PriceCents != nil {
		phone.PriceCents = *req.PriceCents
	}
	if req.Variants != nil {
		phone.Variants = *req.Variants
	}
	if req.Colors != nil {
		phone.Colors = *req.Colors
	}
	if req.ImageURL != nil {
		phone.ImageURL = req.ImageURL
	}
	if req.IsActive != nil {
		phone.IsActive = *req.IsActive
	}
	if req.IsFeatured != nil {
		phone.IsFeatured = *req.IsFeatured
	}

	if err := validateOptions(phone.Variants, phone.Colors); err != nil {
		return PhoneDTO{}, err
	}
	if err := s.phones.Save(ctx, phone); err != nil {
		return PhoneDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update phone")
	}
	return FromModel(phone), nil
}

// Deactivate soft-removes a listing from the storefront.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.phones.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate phone")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Phone, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone id is required")
	}
	phone, err := s.phones.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "phone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load phone")
	}
	return phone, nil
}

func validateOptions(variants, colors []string) error {
	if len(variants) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}
	if len(colors) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one color is required")
	}
	for _, v := range variants {
		if strings.TrimSpace(v) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "variants cannot be blank")
		}
	}
	for _, c := range colors {
		if strings.TrimSpace(c) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "colors cannot be blank")
		}
	}
	return nil
}
