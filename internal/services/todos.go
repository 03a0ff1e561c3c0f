package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"todo-backend/internal/models"
)

const maxTitleLength = 100

// TodoInput carries the fields a client may supply when creating a todo.
type TodoInput struct {
	Title       string
	Description string
	Completed   bool
}

// TodoPatch is a tri-state partial update: a nil pointer means "leave the
// field untouched", a non-nil pointer sets it, and ClearDescription records
// an explicit JSON null for the one nullable field.
type TodoPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Completed        *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription && p.Completed == nil
}

type TodoService interface {
	List(db *gorm.DB, ownerID uint) ([]models.Todo, error)
	Create(db *gorm.DB, ownerID uint, input TodoInput) (*models.Todo, error)
	Update(db *gorm.DB, ownerID, id uint, patch TodoPatch) (*models.Todo, error)
	Delete(db *gorm.DB, ownerID, id uint) (*models.Todo, error)
	Reorder(db *gorm.DB, ownerID uint, ids []uint) error
}

type TodoServiceImpl struct{}

func NewTodoService() *TodoServiceImpl {
	return &TodoServiceImpl{}
}

// validateTitle trims surrounding whitespace and enforces the 1..100
// character bound on the trimmed value.
func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Field: "title", Message: "title cannot be empty"}
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return "", &ValidationError{Field: "title", Message: "title must be 100 characters or less"}
	}
	return trimmed, nil
}

// List returns all of the owner's todos ascending by sort order, id as the
// tie-breaker. Freshly created todos share sort order 0 until the client
// issues a reorder.
func (s *TodoServiceImpl) List(db *gorm.DB, ownerID uint) ([]models.Todo, error) {
	todos := []models.Todo{}
	err := db.Where("owner_id = ?", ownerID).
		Order("sort_order ASC, id ASC").
		Find(&todos).Error
	return todos, err
}

// Create persists a new todo for the owner. The sort order is deliberately
// left at the column default rather than computed from the current maximum.
func (s *TodoServiceImpl) Create(db *gorm.DB, ownerID uint, input TodoInput) (*models.Todo, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	todo := models.Todo{
		Title:       title,
		Description: input.Description,
		Completed:   input.Completed,
		OwnerID:     ownerID,
	}
	if err := db.Create(&todo).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

// Update applies a partial patch to an owned todo. A todo that does not
// exist and a todo owned by someone else are both ErrTodoNotFound.
func (s *TodoServiceImpl) Update(db *gorm.DB, ownerID, id uint, patch TodoPatch) (*models.Todo, error) {
	var todo models.Todo
	err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		todo.Title = title
	}
	if patch.ClearDescription {
		todo.Description = ""
	} else if patch.Description != nil {
		todo.Description = *patch.Description
	}
	if patch.Completed != nil {
		todo.Completed = *patch.Completed
	}

	if err := db.Save(&todo).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

// Delete removes an owned todo and returns the removed record so the caller
// can confirm what was deleted.
func (s *TodoServiceImpl) Delete(db *gorm.DB, ownerID, id uint) (*models.Todo, error) {
	var todo models.Todo
	err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}

	if err := db.Delete(&todo).Error; err != nil {
		return nil, err
	}
	return &todo, nil
}

// Reorder assigns sort_order = positional index for every id that resolves
// to one of the owner's todos. Ids that are unknown or owned by someone else
// are silently skipped; the remaining ids still receive their positions.
// The whole batch commits in one transaction.
func (s *TodoServiceImpl) Reorder(db *gorm.DB, ownerID uint, ids []uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for index, id := range ids {
			res := tx.Model(&models.Todo{}).
				Where("id = ? AND owner_id = ?", id, ownerID).
				Update("sort_order", index)
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
}
