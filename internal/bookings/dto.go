package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	"github.com/touchtrial/touchtrial-backend/pkg/types"
)

// CreateBookingRequest captures the checkout payload.
type CreateBookingRequest struct {
	Address      types.Address `json:"address" validate:"required"`
	DeliveryDate time.Time     `json:"delivery_date" validate:"required"`
	DeliverySlot string        `json:"delivery_slot" validate:"required,min=1,max=40"`
}

// UpdateStatusRequest carries the admin lifecycle move.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BookingItemDTO is the snapshot of one phone inside a booking.
type BookingItemDTO struct {
	PhoneID   uuid.UUID `json:"phone_id"`
	PhoneName string    `json:"phone_name"`
	Brand     string    `json:"brand"`
	Variant   string    `json:"variant"`
	Color     string    `json:"color"`
}

// BookingDTO is the public representation of a trial booking.
type BookingDTO struct {
	ID               uuid.UUID           `json:"id"`
	UserID           uuid.UUID           `json:"user_id"`
	Status           enums.BookingStatus `json:"status"`
	DeliveryAddress  types.Address       `json:"delivery_address"`
	DeliveryDate     time.Time           `json:"delivery_date"`
	DeliverySlot     string              `json:"delivery_slot"`
	DepositFee       int                 `json:"deposit_fee"`
	ConvenienceFee   int                 `json:"convenience_fee"`
	ExtraPhoneCharge int                 `json:"extra_phone_charge"`
	CouponCode       *string             `json:"coupon_code,omitempty"`
	CouponDiscount   int                 `json:"coupon_discount"`
	TotalAmount      int                 `json:"total_amount"`
	Items            []BookingItemDTO    `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
}

// BookingPageDTO is one page of bookings.
type BookingPageDTO struct {
	Items      []BookingDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted booking to its public shape.
func FromModel(booking *models.Booking) BookingDTO {
	items := make([]BookingItemDTO, 0, len(booking.Items))
	for _, item := range booking.Items {
		items = append(items, BookingItemDTO{
			PhoneID:   item.PhoneID,
			PhoneName: item.PhoneName,
			Brand:     item.Brand,
			Variant:   item.Variant,
			Color:     item.Color,
		})
	}
	return BookingDTO{
		ID:               booking.ID,
		UserID:           booking.UserID,
		Status:           booking.Status,
		DeliveryAddress:  booking.DeliveryAddress,
		DeliveryDate:     booking.DeliveryDate,
		DeliverySlot:     booking.DeliverySlot,
		DepositFee:       booking.DepositFeeCents,
		ConvenienceFee:   booking.ConvenienceFeeCents,
		ExtraPhoneCharge: booking.ExtraPhoneCents,
		CouponCode:       booking.CouponCode,
		CouponDiscount:   booking.CouponDiscountCents,
		TotalAmount:      booking.TotalCents,
		Items:            items,
		CreatedAt:        booking.CreatedAt,
	}
}
