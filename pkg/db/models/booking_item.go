package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingItem snapshots one phone included in a trial booking.
type BookingItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID uuid.UUID `gorm:"column:booking_id;type:uuid;not null;index"`
	PhoneID   uuid.UUID `gorm:"column:phone_id;type:uuid;not null"`
	PhoneName string    `gorm:"column:phone_name;not null"`
	Brand     string    `gorm:"column:brand;not null"`
	Variant   string    `gorm:"column:variant;not null"`
	Color     string    `gorm:"column:color;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
