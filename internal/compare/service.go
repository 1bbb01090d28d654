package compare

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/internal/catalog"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

// MaxPhones caps how many phones can sit in one compare list.
const MaxPhones = 4

// ListDTO is the compare list resolved against the live catalogue.
type ListDTO struct {
	Items []catalog.PhoneDTO `json:"items"`
}

// Service manages the per-user phone compare list.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*ListDTO, error)
	Add(ctx context.Context, userID, phoneID uuid.UUID) (*ListDTO, error)
	Remove(ctx context.Context, userID, phoneID uuid.UUID) (*ListDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type phoneCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.PhoneDTO, error)
}

type service struct {
	store   Store
	catalog phoneCatalog
}

// ServiceParams groups dependencies for the compare service.
type ServiceParams struct {
	Store   Store
	Catalog phoneCatalog
}

// NewService builds a compare service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("compare store is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	return &service{store: params.Store, catalog: params.Catalog}, nil
}

// Get resolves the stored ids against the catalogue. Phones that have gone
// inactive since being added are dropped silently.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*ListDTO, error) {
	phoneIDs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, userID, phoneIDs)
}

// Add appends a phone, capped at MaxPhones. Adding a phone already on the
// list is a no-op.
func (s *service) Add(ctx context.Context, userID, phoneID uuid.UUID) (*ListDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	if _, err := s.catalog.Get(ctx, phoneID); err != nil {
		return nil, err
	}

	phoneIDs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if containsID(phoneIDs, phoneID) {
		return s.resolve(ctx, userID, phoneIDs)
	}
	if len(phoneIDs) >= MaxPhones {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "compare list is full").
			WithDetails(map[string]int{"max_phones": MaxPhones})
	}

	phoneIDs = append(phoneIDs, phoneID)
	if err := s.store.Save(ctx, userID, phoneIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save compare list")
	}
	return s.resolve(ctx, userID, phoneIDs)
}

// Remove drops a phone from the list. Removing an absent phone is a no-op.
func (s *service) Remove(ctx context.Context, userID, phoneID uuid.UUID) (*ListDTO, error) {
	phoneIDs, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]uuid.UUID, 0, len(phoneIDs))
	for _, id := range phoneIDs {
		if id != phoneID {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(phoneIDs) {
		if err := s.store.Save(ctx, userID, kept); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save compare list")
		}
	}
	return s.resolve(ctx, userID, kept)
}

// Clear wipes the list.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	if err := s.store.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear compare list")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	phoneIDs, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load compare list")
	}
	return phoneIDs, nil
}

func (s *service) resolve(ctx context.Context, userID uuid.UUID, phoneIDs []uuid.UUID) (*ListDTO, error) {
	items := make([]catalog.PhoneDTO, 0, len(phoneIDs))
	kept := make([]uuid.UUID, 0, len(phoneIDs))
	for _, id := range phoneIDs {
		phone, err := s.catalog.Get(ctx, id)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		items = append(items, phone)
		kept = append(kept, id)
	}

	if len(kept) != len(phoneIDs) {
		if err := s.store.Save(ctx, userID, kept); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save compare list")
		}
	}
	return &ListDTO{Items: items}, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
