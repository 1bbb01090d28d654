package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

type fakePhoneRepo struct {
	phones map[uuid.UUID]*models.Phone
	saved  int
}

func newFakePhoneRepo() *fakePhoneRepo {
	return &fakePhoneRepo{phones: map[uuid.UUID]*models.Phone{}}
}

func (f *fakePhoneRepo) Create(_ context.Context, phone *models.Phone) error {
	phone.ID = uuid.New()
	f.phones[phone.ID] = phone
	return nil
}

func (f *fakePhoneRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Phone, error) {
	if phone, ok := f.phones[id]; ok {
		copied := *phone
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePhoneRepo) Save(_ context.Context, phone *models.Phone) error {
	f.saved++
	f.phones[phone.ID] = phone
	return nil
}

func (f *fakePhoneRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if phone, ok := f.phones[id]; ok {
		phone.IsActive = false
	}
	return nil
}

func (f *fakePhoneRepo) List(_ context.Context, filter ListFilter, _ pagination.Params) (PhonePageDTO, error) {
	items := []PhoneDTO{}
	for _, phone := range f.phones {
		if !filter.IncludeInactive && !phone.IsActive {
			continue
		}
		items = append(items, FromModel(phone))
	}
	return PhonePageDTO{Items: items, Total: int64(len(items))}, nil
}

func (f *fakePhoneRepo) Brands(_ context.Context) ([]string, error) {
	return []string{"Apple", "Samsung"}, nil
}

func seedPhone(repo *fakePhoneRepo, active bool) *models.Phone {
	phone := &models.Phone{
		ID:         uuid.New(),
		Brand:      "Samsung",
		Name:       "Galaxy S25",
		PriceCents: 7999900,
		Variants:   pq.StringArray{"256GB", "512GB"},
		Colors:     pq.StringArray{"Phantom Black"},
		IsActive:   active,
	}
	repo.phones[phone.ID] = phone
	return phone
}

func newCatalogService(t *testing.T, repo *fakePhoneRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{PhoneRepo: repo})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGetHidesInactiveListings(t *testing.T) {
	repo := newFakePhoneRepo()
	phone := seedPhone(repo, false)
	svc := newCatalogService(t, repo)

	_, err := svc.Get(context.Background(), phone.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for inactive listing, got %v", err)
	}
}

func TestGetReturnsActiveListing(t *testing.T) {
	repo := newFakePhoneRepo()
	phone := seedPhone(repo, true)
	svc := newCatalogService(t, repo)

	dto, err := svc.Get(context.Background(), phone.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if dto.Name != "Galaxy S25" || len(dto.Variants) != 2 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
}

func TestCreateRequiresVariantsAndColors(t *testing.T) {
	svc := newCatalogService(t, newFakePhoneRepo())

	_, err := svc.Create(context.Background(), CreatePhoneRequest{
		Brand:      "Apple",
		Name:       "iPhone 17",
		PriceCents: 8999900,
		Variants:   nil,
		Colors:     []string{"Silver"},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateActivatesListingByDefault(t *testing.T) {
	repo := newFakePhoneRepo()
	svc := newCatalogService(t, repo)

	dto, err := svc.Create(context.Background(), CreatePhoneRequest{
		Brand:      "Apple",
		Name:       "iPhone 17",
		PriceCents: 8999900,
		Variants:   []string{"128GB"},
		Colors:     []string{"Silver"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !dto.IsActive {
		t.Fatal("new listings should be active")
	}
}

func TestUpdateAppliesPartialEdit(t *testing.T) {
	repo := newFakePhoneRepo()
	phone := seedPhone(repo, true)
	svc := newCatalogService(t, repo)

	newPrice := 6999900
	dto, err := svc.Update(context.Background(), phone.ID, UpdatePhoneRequest{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.PriceCents != newPrice {
		t.Fatalf("price not applied: %d", dto.PriceCents)
	}
	if dto.Name != "Galaxy S25" {
		t.Fatalf("untouched fields must survive: %q", dto.Name)
	}
	if repo.saved != 1 {
		t.Fatalf("expected 1 save, got %d", repo.saved)
	}
}

func TestDeactivateUnknownListing(t *testing.T) {
	svc := newCatalogService(t, newFakePhoneRepo())

	err := svc.Deactivate(context.Background(), uuid.New())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
