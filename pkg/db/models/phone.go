package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Phone represents a catalogue listing available for home trials.
type Phone struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Brand       string         `gorm:"column:brand;not null"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	PriceCents  int            `gorm:"column:price_cents;not null"`
	Variants    pq.StringArray `gorm:"column:variants;type:text[];not null;default:ARRAY[]::text[]"`
	Colors      pq.StringArray `gorm:"column:colors;type:text[];not null;default:ARRAY[]::text[]"`
	ImageURL    *string        `gorm:"column:image_url"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	IsFeatured  bool           `gorm:"column:is_featured;not null;default:false"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// DefaultVariant returns the first catalogue variant, if any.
func (p Phone) DefaultVariant() string {
	if len(p.Variants) == 0 {
		return ""
	}
	return p.Variants[0]
}

// DefaultColor returns the first catalogue color, if any.
func (p Phone) DefaultColor() string {
	if len(p.Colors) == 0 {
		return ""
	}
	return p.Colors[0]
}

// HasVariant reports whether the variant exists in the catalogue listing.
func (p Phone) HasVariant(variant string) bool {
	for _, candidate := range p.Variants {
		if candidate == variant {
			return true
		}
	}
	return false
}

// HasColor reports whether the color exists in the catalogue listing.
func (p Phone) HasColor(color string) bool {
	for _, candidate := range p.Colors {
		if candidate == color {
			return true
		}
	}
	return false
}
