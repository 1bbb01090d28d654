package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
)

// User is an authenticated storefront account.
type User struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string         `gorm:"column:email;not null;uniqueIndex"`
	Phone           *string        `gorm:"column:phone;uniqueIndex"`
	FullName        string         `gorm:"column:full_name;not null"`
	PasswordHash    string         `gorm:"column:password_hash;not null"`
	Role            enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	EmailVerifiedAt *time.Time     `gorm:"column:email_verified_at"`
	PhoneVerifiedAt *time.Time     `gorm:"column:phone_verified_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
