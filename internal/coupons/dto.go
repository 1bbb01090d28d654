package coupons

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
)

// CouponDTO is the admin-facing representation of a discount code.
type CouponDTO struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	DiscountAmount int       `json:"discount_amount"`
	MaxUses        int       `json:"max_uses"`
	CurrentUses    int       `json:"current_uses"`
	IsActive       bool      `json:"is_active"`
	FirstOrderOnly bool      `json:"first_order_only"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateCouponRequest captures the admin payload for a new code.
type CreateCouponRequest struct {
	Code           string `json:"code" validate:"required,min=3,max=32,alphanum"`
	DiscountAmount int    `json:"discount_amount" validate:"required,gt=0"`
	MaxUses        int    `json:"max_uses" validate:"gte=0"`
	FirstOrderOnly bool   `json:"first_order_only"`
}

// UpdateCouponRequest captures partial admin edits to a code.
type UpdateCouponRequest struct {
	DiscountAmount *int  `json:"discount_amount,omitempty" validate:"omitempty,gt=0"`
	MaxUses        *int  `json:"max_uses,omitempty" validate:"omitempty,gte=0"`
	IsActive       *bool `json:"is_active,omitempty"`
	FirstOrderOnly *bool `json:"first_order_only,omitempty"`
}

// Validation is the outcome of checking a code for a specific user.
type Validation struct {
	Valid          bool
	Code           string
	DiscountAmount int
}

// FromModel converts the persisted coupon into its admin shape.
func FromModel(coupon *models.Coupon) CouponDTO {
	return CouponDTO{
		ID:             coupon.ID,
		Code:           coupon.Code,
		DiscountAmount: coupon.DiscountAmount,
		MaxUses:        coupon.MaxUses,
		CurrentUses:    coupon.CurrentUses,
		IsActive:       coupon.IsActive,
		FirstOrderOnly: coupon.FirstOrderOnly,
		CreatedAt:      coupon.CreatedAt,
	}
}
