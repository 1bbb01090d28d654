package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

// Repository encapsulates catalogue persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalogue repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, phone *models.Phone) error {
	return r.db.WithContext(ctx).Create(phone).Error
}

// FindByID loads a listing by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Phone, error) {
	var phone models.Phone
	if err := r.db.WithContext(ctx).First(&phone, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &phone, nil
}

// Save persists all columns of an existing listing.
func (r *Repository) Save(ctx context.Context, phone *models.Phone) error {
	return r.db.WithContext(ctx).Save(phone).Error
}

// Deactivate soft-removes a listing from the public catalogue.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Phone{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}

// List returns one cursor page of listings matching the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (PhonePageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return PhonePageDTO{}, err
	}

	base := r.filtered(ctx, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Model(&models.Phone{}).Count(&total).Error; err != nil {
		return PhonePageDTO{}, err
	}

	query := r.filtered(ctx, filter)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Phone
	if err := query.Find(&records).Error; err != nil {
		return PhonePageDTO{}, err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	items := make([]PhoneDTO, 0, len(records))
	for i := range records {
		items = append(items, FromModel(&records[i]))
	}

	return PhonePageDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// Brands returns the distinct active brands in alphabetical order.
func (r *Repository) Brands(ctx context.Context) ([]string, error) {
	var brands []string
	err := r.db.WithContext(ctx).
		Model(&models.Phone{}).
		Where("is_active = true").
		Distinct("brand").
		Order("brand ASC").
		Pluck("brand", &brands).Error
	if err != nil {
		return nil, err
	}
	return brands, nil
}

func (r *Repository) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Phone{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = true")
	}
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where("brand = ?", brand)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR brand ILIKE ?", pattern, pattern)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("price_cents <= ?", filter.MaxPrice)
	}
	if filter.Featured {
		query = query.Where("is_featured = true")
	}
	return query
}
