package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/touchtrial/touchtrial-backend/pkg/db/models"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
)

// CreateUserDTO carries the fields needed to persist a new account.
type CreateUserDTO struct {
	Email        string
	Phone        *string
	FullName     string
	PasswordHash string
	Role         enums.UserRole
}

// ToModel maps the DTO onto a fresh user model.
func (d CreateUserDTO) ToModel() *models.User {
	role := d.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:        d.Email,
		Phone:        d.Phone,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		Role:         role,
	}
}

// UserDTO is the public representation of an account.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	Phone         *string        `json:"phone,omitempty"`
	FullName      string         `json:"full_name"`
	Role          enums.UserRole `json:"role"`
	EmailVerified bool           `json:"email_verified"`
	PhoneVerified bool           `json:"phone_verified"`
	CreatedAt     time.Time      `json:"created_at"`
}

// FromModel converts the persisted user into its public shape.
func FromModel(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:            user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		FullName:      user.FullName,
		Role:          user.Role,
		EmailVerified: user.EmailVerifiedAt != nil,
		PhoneVerified: user.PhoneVerifiedAt != nil,
		CreatedAt:     user.CreatedAt,
	}
}
