package coupons

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

// Service exposes coupon validation for checkout plus the admin surface.
type Service interface {
	Validate(ctx context.Context, userID uuid.UUID, code string) (Validation, error)
	RecordRedemption(ctx context.Context, tx *gorm.DB, code string) error
	Create(ctx context.Context, req CreateCouponRequest) (CouponDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCouponRequest) (CouponDTO, error)
	List(ctx context.Context) ([]CouponDTO, error)
}

type couponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Save(ctx context.Context, coupon *models.Coupon) error
	List(ctx context.Context) ([]models.Coupon, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, code string) error
}

type bookingCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	coupons  couponRepository
	bookings bookingCounter
}

// ServiceParams groups dependencies for the coupons service.
type ServiceParams struct {
	CouponRepo  couponRepository
	BookingRepo bookingCounter
}

// NewService builds a coupons service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CouponRepo == nil {
		return nil, fmt.Errorf("coupon repository is required")
	}
	if params.BookingRepo == nil {
		return nil, fmt.Errorf("booking repository is required")
	}
	return &service{
		coupons:  params.CouponRepo,
		bookings: params.BookingRepo,
	}, nil
}

// NormalizeCode canonicalizes user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks whether the code can be applied by the user right now.
// Any failure, including lookup errors, yields an invalid result so a broken
// coupon can never reduce a total it should not.
func (s *service) Validate(ctx context.Context, userID uuid.UUID, code string) (Validation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Validation{}, nil
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		return Validation{}, nil
	}
	if !coupon.IsActive || coupon.Exhausted() {
		return Validation{}, nil
	}

	if coupon.FirstOrderOnly {
		count, err := s.bookings.CountByUser(ctx, userID)
		if err != nil || count > 0 {
			return Validation{}, nil
		}
	}

	return Validation{
		Valid:          true,
		Code:           coupon.Code,
		DiscountAmount: coupon.DiscountAmount,
	}, nil
}

// RecordRedemption bumps the usage counter inside the checkout transaction.
func (s *service) RecordRedemption(ctx context.Context, tx *gorm.DB, code string) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil
	}
	if err := s.coupons.IncrementUsage(ctx, tx, normalized); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}
	return nil
}

// Create inserts a new coupon from an admin payload.
func (s *service) Create(ctx context.Context, req CreateCouponRequest) (CouponDTO, error) {
	normalized := NormalizeCode(req.Code)
	if normalized == "" {
		return CouponDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	if _, err := s.coupons.FindByCode(ctx, normalized); err == nil {
		return CouponDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
	} else if !db.IsNotFound(err) {
		return CouponDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing coupon")
	}

	coupon := &models.Coupon{
		Code:           normalized,
		DiscountAmount: req.DiscountAmount,
		MaxUses:        req.MaxUses,
		IsActive:       true,
		FirstOrderOnly: req.FirstOrderOnly,
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return CouponDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return FromModel(coupon), nil
}

// Update applies a partial admin edit to an existing coupon.
func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateCouponRequest) (CouponDTO, error) {
	if id == uuid.Nil {
		return CouponDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return CouponDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return CouponDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if req.DiscountAmount != nil {
		coupon.DiscountAmount = *req.DiscountAmount
	}
	if req.MaxUses != nil {
		coupon.MaxUses = *req.MaxUses
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if req.FirstOrderOnly != nil {
		coupon.FirstOrderOnly = *req.FirstOrderOnly
	}

	if err := s.coupons.Save(ctx, coupon); err != nil {
		return CouponDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return FromModel(coupon), nil
}

// List returns every coupon for the admin dashboard.
func (s *service) List(ctx context.Context) ([]CouponDTO, error) {
	records, err := s.coupons.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	dtos := make([]CouponDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, FromModel(&records[i]))
	}
	return dtos, nil
}
