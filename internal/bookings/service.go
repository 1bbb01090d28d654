package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/internal/cart"
	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

// Service exposes trial booking checkout and lifecycle management.
type Service interface {
	CreateFromCart(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (BookingDTO, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (BookingPageDTO, error)
	Get(ctx context.Context, userID, bookingID uuid.UUID) (BookingDTO, error)
	Cancel(ctx context.Context, userID, bookingID uuid.UUID) (BookingDTO, error)
	ListAll(ctx context.Context, status string, params pagination.Params) (BookingPageDTO, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, req UpdateStatusRequest) (BookingDTO, error)
}

type bookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BookingStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, string, error)
	ListAll(ctx context.Context, status enums.BookingStatus, params pagination.Params) ([]models.Booking, string, error)
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (cart.CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type couponRedeemer interface {
	RecordRedemption(ctx context.Context, tx *gorm.DB, code string) error
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	bookings bookingRepository
	carts    cartReader
	coupons  couponRedeemer
	tx       transactor
	now      func() time.Time
}

// ServiceParams groups dependencies for the bookings service.
type ServiceParams struct {
	BookingRepo    bookingRepository
	CartService    cartReader
	CouponRedeemer couponRedeemer
	Transactor     transactor
	Now            func() time.Time
}

// NewService builds a bookings service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.BookingRepo == nil {
		return nil, fmt.Errorf("booking repository is required")
	}
	if params.CartService == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.CouponRedeemer == nil {
		return nil, fmt.Errorf("coupon redeemer is required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		bookings: params.BookingRepo,
		carts:    params.CartService,
		coupons:  params.CouponRedeemer,
		tx:       params.Transactor,
		now:      now,
	}, nil
}

// CreateFromCart snapshots the cart into a pending booking, records any coupon
// redemption in the same transaction, then empties the cart.
func (s *service) CreateFromCart(ctx context.Context, userID uuid.UUID, req CreateBookingRequest) (BookingDTO, error) {
	if userID == uuid.Nil {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	if !req.Address.IsComplete() {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is incomplete")
	}
	if req.DeliveryDate.Before(s.now()) {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "delivery date must be in the future")
	}

	current, err := s.carts.Get(ctx, userID)
	if err != nil {
		return BookingDTO{}, err
	}
	if len(current.Items) == 0 {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]models.BookingItem, 0, len(current.Items))
	for _, item := range current.Items {
		items = append(items, models.BookingItem{
			PhoneID:   item.PhoneID,
			PhoneName: item.PhoneName,
			Brand:     item.Brand,
			Variant:   item.Variant,
			Color:     item.Color,
		})
	}

	var couponCode *string
	if current.CouponCode != "" {
		code := current.CouponCode
		couponCode = &code
	}

	booking := &models.Booking{
		UserID:              userID,
		Status:              enums.BookingStatusPending,
		DeliveryAddress:     req.Address,
		DeliveryDate:        req.DeliveryDate,
		DeliverySlot:        req.DeliverySlot,
		DepositFeeCents:     current.Fees.DepositFee,
		ConvenienceFeeCents: current.Fees.ConvenienceFee,
		ExtraPhoneCents:     current.Fees.ExtraPhoneCharge,
		CouponCode:          couponCode,
		CouponDiscountCents: current.Fees.CouponDiscount,
		TotalCents:          current.Fees.TotalAmount,
		Items:               items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			return err
		}
		if couponCode != nil {
			return s.coupons.RecordRedemption(ctx, tx, *couponCode)
		}
		return nil
	})
	if err != nil {
		return BookingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}

	// cart cleanup happens after commit; a failure here leaves the booking intact
	_ = s.carts.Clear(ctx, userID)

	return FromModel(booking), nil
}

// List returns the user's bookings, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (BookingPageDTO, error) {
	records, nextCursor, err := s.bookings.ListByUser(ctx, userID, params)
	if err != nil {
		return BookingPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return toPage(records, nextCursor), nil
}

// Get loads one booking owned by the user.
func (s *service) Get(ctx context.Context, userID, bookingID uuid.UUID) (BookingDTO, error) {
	booking, err := s.loadOwned(ctx, userID, bookingID)
	if err != nil {
		return BookingDTO{}, err
	}
	return FromModel(booking), nil
}

// Cancel moves an owned booking to cancelled when the lifecycle allows it.
func (s *service) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (BookingDTO, error) {
	booking, err := s.loadOwned(ctx, userID, bookingID)
	if err != nil {
		return BookingDTO{}, err
	}
	if !booking.Status.CanTransitionTo(enums.BookingStatusCancelled) {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "booking can no longer be cancelled").
			WithDetails(map[string]string{"status": booking.Status.String()})
	}
	if err := s.bookings.UpdateStatus(ctx, bookingID, enums.BookingStatusCancelled); err != nil {
		return BookingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
	}
	booking.Status = enums.BookingStatusCancelled
	return FromModel(booking), nil
}

// ListAll returns bookings across all users for the admin dashboard.
func (s *service) ListAll(ctx context.Context, status string, params pagination.Params) (BookingPageDTO, error) {
	var parsed enums.BookingStatus
	if status != "" {
		var err error
		parsed, err = enums.ParseBookingStatus(status)
		if err != nil {
			return BookingPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
	}
	records, nextCursor, err := s.bookings.ListAll(ctx, parsed, params)
	if err != nil {
		return BookingPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return toPage(records, nextCursor), nil
}

// UpdateStatus applies an admin lifecycle move, honoring allowed transitions.
func (s *service) UpdateStatus(ctx context.Context, bookingID uuid.UUID, req UpdateStatusRequest) (BookingDTO, error) {
	next, err := enums.ParseBookingStatus(req.Status)
	if err != nil {
		return BookingDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return BookingDTO{}, err
	}
	if !booking.Status.CanTransitionTo(next) {
		return BookingDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]string{
				"from": booking.Status.String(),
				"to":   next.String(),
			})
	}
	if err := s.bookings.UpdateStatus(ctx, bookingID, next); err != nil {
		return BookingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
	}
	booking.Status = next
	return FromModel(booking), nil
}

func (s *service) load(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

func (s *service) loadOwned(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

func toPage(records []models.Booking, nextCursor string) BookingPageDTO {
	items := make([]BookingDTO, 0, len(records))
	for i := range records {
		items = append(items, FromModel(&records[i]))
	}
	return BookingPageDTO{
		Items:      items,
		NextCursor: nextCursor,
	}
}
