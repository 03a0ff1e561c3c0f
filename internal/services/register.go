package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"todo-backend/internal/models"
)

type RegisterService interface {
	RegisterUser(db *gorm.DB, email, password string) (*models.User, error)
}

type RegisterServiceImpl struct{}

func NewRegisterService() *RegisterServiceImpl {
	return &RegisterServiceImpl{}
}

// RegisterUser creates a new account. The pre-check gives the common
// duplicate case a clean error, but the database unique constraint is the
// authoritative guard: two concurrent registrations can both pass the
// pre-check, and the loser's insert is rejected and reported as a conflict.
// Nothing partially persists on either failure path.
func (s *RegisterServiceImpl) RegisterUser(db *gorm.DB, email, password string) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// bcrypt ignores input beyond 72 bytes; reject instead of silently
	// truncating.
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:          email,
		HashedPassword: string(hash),
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailConflict
		}
		return nil, err
	}

	return &user, nil
}

// isUniqueViolation recognizes a unique-constraint failure across the
// drivers in play: gorm's translated error plus the raw postgres and sqlite
// message forms.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
