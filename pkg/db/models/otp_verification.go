package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
)

// OTPVerification stores an outstanding one-time code for a phone or email target.
type OTPVerification struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Channel    enums.OTPChannel `gorm:"column:channel;type:otp_channel;not null"`
	Target     string           `gorm:"column:target;not null;index"`
	Code       string           `gorm:"column:code;not null"`
	Attempts   int              `gorm:"column:attempts;not null;default:0"`
	ExpiresAt  time.Time        `gorm:"column:expires_at;not null"`
	VerifiedAt *time.Time       `gorm:"column:verified_at"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// Expired reports whether the code is past its validity window.
func (o OTPVerification) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
