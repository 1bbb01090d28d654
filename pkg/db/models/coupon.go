package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a flat-amount discount applied against the trial experience fee.
type Coupon struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string    `gorm:"column:code;not null;uniqueIndex"`
	DiscountAmount int       `gorm:"column:discount_amount;not null"`
	MaxUses        int       `gorm:"column:max_uses;not null;default:0"`
	CurrentUses    int       `gorm:"column:current_uses;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	FirstOrderOnly bool      `gorm:"column:first_order_only;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the redemption cap has been reached.
// A zero cap means unlimited use.
func (c Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.CurrentUses >= c.MaxUses
}
