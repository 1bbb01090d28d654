package db

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFound reports whether the error is a GORM missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
