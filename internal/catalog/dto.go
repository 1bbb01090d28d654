package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
)

// ListFilter narrows the catalogue listing query.
type ListFilter struct {
	Brand           string
	Search          string
	MaxPrice        int
	Featured        bool
	IncludeInactive bool
}

// PhoneDTO is the public catalogue representation of a listing.
type PhoneDTO struct {
	ID          uuid.UUID `json:"id"`
	Brand       string    `json:"brand"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	Variants    []string  `json:"variants"`
	Colors      []string  `json:"colors"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsFeatured  bool      `json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
}

// PhonePageDTO is one page of catalogue results.
type PhonePageDTO struct {
	Items      []PhoneDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Total      int64      `json:"total"`
}

// CreatePhoneRequest captures the admin payload for a new listing.
type CreatePhoneRequest struct {
	Brand       string   `json:"brand" validate:"required,min=1,max=60"`
	Name        string   `json:"name" validate:"required,min=1,max=120"`
	Description *string  `json:"description,omitempty"`
	PriceCents  int      `json:"price_cents" validate:"required,gt=0"`
	Variants    []string `json:"variants" validate:"required,min=1,dive,min=1"`
	Colors      []string `json:"colors" validate:"required,min=1,dive,min=1"`
	ImageURL    *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	IsFeatured  bool     `json:"is_featured"`
}

// UpdatePhoneRequest captures partial admin edits to a listing.
type UpdatePhoneRequest struct {
	Brand       *string   `json:"brand,omitempty" validate:"omitempty,min=1,max=60"`
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string   `json:"description,omitempty"`
	PriceCents  *int      `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	Variants    *[]string `json:"variants,omitempty" validate:"omitempty,min=1,dive,min=1"`
	Colors      *[]string `json:"colors,omitempty" validate:"omitempty,min=1,dive,min=1"`
	ImageURL    *string   `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool     `json:"is_active,omitempty"`
	IsFeatured  *bool     `json:"is_featured,omitempty"`
}

// DefaultVariant returns the first catalogue variant, if any.
func (p PhoneDTO) DefaultVariant() string {
	if len(p.Variants) == 0 {
		return ""
	}
	return p.Variants[0]
}

// DefaultColor returns the first catalogue color, if any.
func (p PhoneDTO) DefaultColor() string {
	if len(p.Colors) == 0 {
		return ""
	}
	return p.Colors[0]
}

// FromModel converts a listing model to its public shape.
func FromModel(phone *models.Phone) PhoneDTO {
	return PhoneDTO{
		ID:          phone.ID,
		Brand:       phone.Brand,
		Name:        phone.Name,
		Description: phone.Description,
		PriceCents:  phone.PriceCents,
		Variants:    []string(phone.Variants),
		Colors:      []string(phone.Colors),
		ImageURL:    phone.ImageURL,
		IsActive:    phone.IsActive,
		IsFeatured:  phone.IsFeatured,
		CreatedAt:   phone.CreatedAt,
	}
}

func (r CreatePhoneRequest) toModel() *models.Phone {
	return &models.Phone{
		Brand:       r.Brand,
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Variants:    pq.StringArray(r.Variants),
		Colors:      pq.StringArray(r.Colors),
		ImageURL:    r.ImageURL,
		IsActive:    true,
		IsFeatured:  r.IsFeatured,
	}
}
