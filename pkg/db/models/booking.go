package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	"github.com/touchtrial/touchtrial-backend/pkg/types"
)

// Booking is a scheduled home-trial delivery created from a cart at checkout.
type Booking struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status              enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	DeliveryAddress     types.Address       `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DeliveryDate        time.Time           `gorm:"column:delivery_date;not null"`
	DeliverySlot        string              `gorm:"column:delivery_slot;not null"`
	DepositFeeCents     int                 `gorm:"column:deposit_fee_cents;not null"`
	ConvenienceFeeCents int                 `gorm:"column:convenience_fee_cents;not null"`
	ExtraPhoneCents     int                 `gorm:"column:extra_phone_cents;not null"`
	CouponCode          *string             `gorm:"column:coupon_code"`
	CouponDiscountCents int                 `gorm:"column:coupon_discount_cents;not null;default:0"`
	TotalCents          int                 `gorm:"column:total_cents;not null"`
	Items               []BookingItem       `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
