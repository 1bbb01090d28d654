package bookings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

// Repository encapsulates booking persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a bookings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the booking and its item snapshots.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).Create(booking).Error
}

// FindByID loads a booking with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Items").First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// CountByUser returns how many bookings the user has ever made.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus persists a lifecycle move.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BookingStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// ListByUser returns one cursor page of a user's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, string, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("user_id = ?", userID)
	})
}

// ListAll returns one cursor page across every user, optionally filtered by status.
func (r *Repository) ListAll(ctx context.Context, status enums.BookingStatus, params pagination.Params) ([]models.Booking, string, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		if status != "" {
			return query.Where("status = ?", status)
		}
		return query
	})
}

func (r *Repository) list(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) ([]models.Booking, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := scope(r.db.WithContext(ctx).Model(&models.Booking{}).Preload("Items"))
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Booking
	if err := query.Find(&records).Error; err != nil {
		return nil, "", err
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
	return records, nextCursor, nil
}
