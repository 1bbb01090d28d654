package coupons

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

type fakeCouponRepo struct {
	byCode    map[string]*models.Coupon
	byID      map[uuid.UUID]*models.Coupon
	findErr   error
	usageIncs []string
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{
		byCode: map[string]*models.Coupon{},
		byID:   map[uuid.UUID]*models.Coupon{},
	}
}

func (f *fakeCouponRepo) add(coupon *models.Coupon) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	f.byCode[coupon.Code] = coupon
	f.byID[coupon.ID] = coupon
}

func (f *fakeCouponRepo) Create(_ context.Context, coupon *models.Coupon) error {
	f.add(coupon)
	return nil
}

func (f *fakeCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	if coupon, ok := f.byID[id]; ok {
		return coupon, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if coupon, ok := f.byCode[code]; ok {
		return coupon, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCouponRepo) Save(_ context.Context, coupon *models.Coupon) error {
	f.add(coupon)
	return nil
}

func (f *fakeCouponRepo) List(_ context.Context) ([]models.Coupon, error) {
	out := []models.Coupon{}
	for _, coupon := range f.byID {
		out = append(out, *coupon)
	}
	return out, nil
}

func (f *fakeCouponRepo) IncrementUsage(_ context.Context, _ *gorm.DB, code string) error {
	f.usageIncs = append(f.usageIncs, code)
	return nil
}

type fakeBookingCounter struct {
	count int64
	err   error
}

func (f *fakeBookingCounter) CountByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.count, f.err
}

func newCouponService(t *testing.T, repo *fakeCouponRepo, counter *fakeBookingCounter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{CouponRepo: repo, BookingRepo: counter})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestValidateAcceptsActiveCoupon(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "TRIAL50", DiscountAmount: 50, IsActive: true})
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	result, err := svc.Validate(context.Background(), uuid.New(), "  trial50 ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid || result.Code != "TRIAL50" || result.DiscountAmount != 50 {
		t.Fatalf("unexpected validation: %+v", result)
	}
}

func TestValidateRejectsInactiveCoupon(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "OLD", DiscountAmount: 50, IsActive: false})
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	result, err := svc.Validate(context.Background(), uuid.New(), "OLD")
	if err != nil || result.Valid {
		t.Fatalf("inactive coupon must be invalid: %+v %v", result, err)
	}
}

func TestValidateRejectsExhaustedCoupon(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "CAPPED", DiscountAmount: 50, IsActive: true, MaxUses: 3, CurrentUses: 3})
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	result, err := svc.Validate(context.Background(), uuid.New(), "CAPPED")
	if err != nil || result.Valid {
		t.Fatalf("exhausted coupon must be invalid: %+v %v", result, err)
	}
}

func TestValidateFirstOrderOnlyRejectsReturningUser(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "WELCOME", DiscountAmount: 100, IsActive: true, FirstOrderOnly: true})
	svc := newCouponService(t, repo, &fakeBookingCounter{count: 2})

	result, err := svc.Validate(context.Background(), uuid.New(), "WELCOME")
	if err != nil || result.Valid {
		t.Fatalf("returning user must not redeem first-order coupon: %+v %v", result, err)
	}
}

func TestValidateFirstOrderOnlyAcceptsNewUser(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "WELCOME", DiscountAmount: 100, IsActive: true, FirstOrderOnly: true})
	svc := newCouponService(t, repo, &fakeBookingCounter{count: 0})

	result, err := svc.Validate(context.Background(), uuid.New(), "WELCOME")
	if err != nil || !result.Valid {
		t.Fatalf("new user should redeem first-order coupon: %+v %v", result, err)
	}
}

func TestValidateFailsClosedOnLookupError(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.findErr = errors.New("connection reset")
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	result, err := svc.Validate(context.Background(), uuid.New(), "TRIAL50")
	if err != nil {
		t.Fatalf("lookup errors must not surface: %v", err)
	}
	if result.Valid {
		t.Fatal("lookup errors must yield an invalid result")
	}
}

func TestValidateFailsClosedOnBookingCountError(t *testing.T) {
	repo := newFakeCouponRepo()
	repo.add(&models.Coupon{Code: "WELCOME", DiscountAmount: 100, IsActive: true, FirstOrderOnly: true})
	svc := newCouponService(t, repo, &fakeBookingCounter{err: errors.New("timeout")})

	result, err := svc.Validate(context.Background(), uuid.New(), "WELCOME")
	if err != nil || result.Valid {
		t.Fatalf("count errors must yield an invalid result: %+v %v", result, err)
	}
}

func TestCreateUppercasesAndRejectsDuplicates(t *testing.T) {
	repo := newFakeCouponRepo()
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	dto, err := svc.Create(context.Background(), CreateCouponRequest{Code: "fresh10", DiscountAmount: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Code != "FRESH10" {
		t.Fatalf("code not normalized: %q", dto.Code)
	}

	_, err = svc.Create(context.Background(), CreateCouponRequest{Code: "FRESH10", DiscountAmount: 10})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRecordRedemptionNormalizesCode(t *testing.T) {
	repo := newFakeCouponRepo()
	svc := newCouponService(t, repo, &fakeBookingCounter{})

	if err := svc.RecordRedemption(context.Background(), nil, " trial50 "); err != nil {
		t.Fatalf("RecordRedemption: %v", err)
	}
	if len(repo.usageIncs) != 1 || repo.usageIncs[0] != "TRIAL50" {
		t.Fatalf("unexpected increments: %v", repo.usageIncs)
	}
}
