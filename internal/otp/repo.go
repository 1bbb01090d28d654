package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
)

// Repository exposes verification-code persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an OTP repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a fresh verification record.
func (r *Repository) Create(ctx context.Context, verification *models.OTPVerification) error {
	return r.db.WithContext(ctx).Create(verification).Error
}

// FindLatest loads the newest unverified code for a channel and target.
func (r *Repository) FindLatest(ctx context.Context, channel enums.OTPChannel, target string) (*models.OTPVerification, error) {
	var verification models.OTPVerification
	err := r.db.WithContext(ctx).
		Where("channel = ? AND target = ? AND verified_at IS NULL", channel, target).
		Order("created_at DESC").
		First(&verification).Error
	if err != nil {
		return nil, err
	}
	return &verification, nil
}

// IncrementAttempts bumps the failed-attempt counter.
func (r *Repository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPVerification{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// MarkVerified stamps the verification time.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OTPVerification{}).
		Where("id = ?", id).
		UpdateColumn("verified_at", at).Error
}
