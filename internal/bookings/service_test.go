package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/internal/cart"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
	"github.com/touchtrial/touchtrial-backend/pkg/types"
)

type fakeBookingRepo struct {
	byID    map[uuid.UUID]*models.Booking
	created []*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byID: map[uuid.UUID]*models.Booking{}}
}

func (f *fakeBookingRepo) Create(_ context.Context, _ *gorm.DB, booking *models.Booking) error {
	booking.ID = uuid.New()
	f.byID[booking.ID] = booking
	f.created = append(f.created, booking)
	return nil
}

func (f *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	if booking, ok := f.byID[id]; ok {
		copied := *booking
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.BookingStatus) error {
	if booking, ok := f.byID[id]; ok {
		booking.Status = status
	}
	return nil
}

func (f *fakeBookingRepo) ListByUser(_ context.Context, userID uuid.UUID, _ pagination.Params) ([]models.Booking, string, error) {
	out := []models.Booking{}
	for _, booking := range f.byID {
		if booking.UserID == userID {
			out = append(out, *booking)
		}
	}
	return out, "", nil
}

func (f *fakeBookingRepo) ListAll(_ context.Context, status enums.BookingStatus, _ pagination.Params) ([]models.Booking, string, error) {
	out := []models.Booking{}
	for _, booking := range f.byID {
		if status == "" || booking.Status == status {
			out = append(out, *booking)
		}
	}
	return out, "", nil
}

type fakeCartReader struct {
	dto     cart.CartDTO
	cleared int
}

func (f *fakeCartReader) Get(_ context.Context, _ uuid.UUID) (cart.CartDTO, error) {
	return f.dto, nil
}

func (f *fakeCartReader) Clear(_ context.Context, _ uuid.UUID) error {
	f.cleared++
	return nil
}

type fakeRedeemer struct {
	redeemed []string
}

func (f *fakeRedeemer) RecordRedemption(_ context.Context, _ *gorm.DB, code string) error {
	f.redeemed = append(f.redeemed, code)
	return nil
}

type fakeTransactor struct{}

func (fakeTransactor) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type bookingFixture struct {
	svc      Service
	repo     *fakeBookingRepo
	carts    *fakeCartReader
	redeemer *fakeRedeemer
	userID   uuid.UUID
	now      time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	repo := newFakeBookingRepo()
	carts := &fakeCartReader{}
	redeemer := &fakeRedeemer{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		BookingRepo:    repo,
		CartService:    carts,
		CouponRedeemer: redeemer,
		Transactor:     fakeTransactor{},
		Now:            func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &bookingFixture{
		svc:      svc,
		repo:     repo,
		carts:    carts,
		redeemer: redeemer,
		userID:   uuid.New(),
		now:      now,
	}
}

func validAddress() types.Address {
	return types.Address{
		Line1:      "14 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
	}
}

func (f *bookingFixture) cartWithItems(n int, couponCode string, discount int) {
	items := make([]cart.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, cart.Item{
			PhoneID:   uuid.New(),
			PhoneName: "Pixel 10",
			Brand:     "Google",
			Variant:   "128GB",
			Color:     "Obsidian",
		})
	}
	f.carts.dto = cart.CartDTO{
		Items:      items,
		CouponCode: couponCode,
		Fees:       cart.ComputeFees(n, discount),
	}
}

func (f *bookingFixture) checkoutRequest() CreateBookingRequest {
	return CreateBookingRequest{
		Address:      validAddress(),
		DeliveryDate: f.now.Add(48 * time.Hour),
		DeliverySlot: "10:00-12:00",
	}
}

func TestCreateFromCartSnapshotsFeesAndItems(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(6, "", 0)

	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if dto.Status != enums.BookingStatusPending {
		t.Fatalf("new bookings start pending, got %s", dto.Status)
	}
	if len(dto.Items) != 6 {
		t.Fatalf("expected 6 item snapshots, got %d", len(dto.Items))
	}
	if dto.DepositFee != 399 || dto.ConvenienceFee != 100 || dto.ExtraPhoneCharge != 69 {
		t.Fatalf("fee snapshot mismatch: %+v", dto)
	}
	if dto.TotalAmount != 568 {
		t.Fatalf("unexpected total: %d", dto.TotalAmount)
	}
	if f.carts.cleared != 1 {
		t.Fatal("cart must be cleared after checkout")
	}
}

func TestCreateFromCartRecordsCouponRedemption(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(2, "TRIAL50", 50)

	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if dto.CouponCode == nil || *dto.CouponCode != "TRIAL50" || dto.CouponDiscount != 50 {
		t.Fatalf("coupon snapshot mismatch: %+v", dto)
	}
	if len(f.redeemer.redeemed) != 1 || f.redeemer.redeemed[0] != "TRIAL50" {
		t.Fatalf("redemption not recorded: %v", f.redeemer.redeemed)
	}
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(0, "", 0)

	_, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFromCartRejectsIncompleteAddress(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)

	req := f.checkoutRequest()
	req.Address.Line1 = ""
	_, err := f.svc.CreateFromCart(context.Background(), f.userID, req)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateFromCartRejectsPastDeliveryDate(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)

	req := f.checkoutRequest()
	req.DeliveryDate = f.now.Add(-time.Hour)
	_, err := f.svc.CreateFromCart(context.Background(), f.userID, req)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetHidesOtherUsersBookings(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)
	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}

	_, err = f.svc.Get(context.Background(), uuid.New(), dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign bookings must read as missing, got %v", err)
	}
}

func TestCancelPendingBooking(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)
	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), f.userID, dto.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != enums.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestCancelDeliveredBookingIsRejected(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)
	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	f.repo.byID[dto.ID].Status = enums.BookingStatusDelivered

	_, err = f.svc.Cancel(context.Background(), f.userID, dto.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusHonorsLifecycle(t *testing.T) {
	f := newBookingFixture(t)
	f.cartWithItems(1, "", 0)
	dto, err := f.svc.CreateFromCart(context.Background(), f.userID, f.checkoutRequest())
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}

	updated, err := f.svc.UpdateStatus(context.Background(), dto.ID, UpdateStatusRequest{Status: "confirmed"})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}

	_, err = f.svc.UpdateStatus(context.Background(), dto.ID, UpdateStatusRequest{Status: "completed"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("skipping states must be rejected, got %v", err)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), UpdateStatusRequest{Status: "teleported"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
