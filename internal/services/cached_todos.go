package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"todo-backend/internal/cache"
	"todo-backend/internal/models"
)

const todoListTTL = 5 * time.Minute

// CachedTodoService decorates a TodoService with a per-owner cache of the
// JSON-encoded todo list. Every write invalidates the owner's entry, so a
// cached read is never staler than the last completed write.
type CachedTodoService struct {
	inner TodoService
	cache cache.Cache
}

func NewCachedTodoService(inner TodoService, c cache.Cache) *CachedTodoService {
	return &CachedTodoService{inner: inner, cache: c}
}

func todoListKey(ownerID uint) string {
	return fmt.Sprintf("todos:owner:%d", ownerID)
}

func (s *CachedTodoService) List(db *gorm.DB, ownerID uint) ([]models.Todo, error) {
	key := todoListKey(ownerID)

	if raw, ok := s.cache.Get(key); ok {
		var todos []models.Todo
		if err := json.Unmarshal(raw, &todos); err == nil {
			return todos, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		_ = s.cache.Delete(key)
	}

	todos, err := s.inner.List(db, ownerID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(todos); err == nil {
		if err := s.cache.Set(key, raw, todoListTTL); err != nil {
			log.Printf("cache set failed for %s: %v", key, err)
		}
	}
	return todos, nil
}

func (s *CachedTodoService) Create(db *gorm.DB, ownerID uint, input TodoInput) (*models.Todo, error) {
	todo, err := s.inner.Create(db, ownerID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ownerID)
	return todo, nil
}

func (s *CachedTodoService) Update(db *gorm.DB, ownerID, id uint, patch TodoPatch) (*models.Todo, error) {
	todo, err := s.inner.Update(db, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ownerID)
	return todo, nil
}

func (s *CachedTodoService) Delete(db *gorm.DB, ownerID, id uint) (*models.Todo, error) {
	todo, err := s.inner.Delete(db, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ownerID)
	return todo, nil
}

func (s *CachedTodoService) Reorder(db *gorm.DB, ownerID uint, ids []uint) error {
	if err := s.inner.Reorder(db, ownerID, ids); err != nil {
		return err
	}
	s.invalidate(ownerID)
	return nil
}

func (s *CachedTodoService) invalidate(ownerID uint) {
	if err := s.cache.Delete(todoListKey(ownerID)); err != nil {
		log.Printf("cache invalidation failed for owner %d: %v", ownerID, err)
	}
}
