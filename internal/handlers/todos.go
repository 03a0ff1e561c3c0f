package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"todo-backend/internal/middleware"
	"todo-backend/internal/services"
)

type TodoHandler struct {
	db          *gorm.DB
	todoService services.TodoService
}

func NewTodoHandler(db *gorm.DB, todoService services.TodoService) *TodoHandler {
	return &TodoHandler{db: db, todoService: todoService}
}

func (h *TodoHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	todos, err := h.todoService.List(h.db, user.ID)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	todo, err := h.todoService.Create(h.db, user.ID, services.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	id, err := parseTodoID(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	patch, err := decodeTodoPatch(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	todo, err := h.todoService.Update(h.db, user.ID, id, patch)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	id, err := parseTodoID(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.todoService.Delete(h.db, user.ID, id)
	if err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Deleted successfully",
		"todo_id": deleted.ID,
	})
}

func (h *TodoHandler) Reorder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
		return
	}

	var req struct {
		TodoIDs []uint `json:"todo_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := h.todoService.Reorder(h.db, user.ID, req.TodoIDs); err != nil {
		handleTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated"})
}

func parseTodoID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("todo id must be an integer")
	}
	return uint(id), nil
}

// decodeTodoPatch turns the request body into a tri-state patch: a key that
// is absent leaves its field untouched, "description": null clears the
// description, and null for any non-nullable field is rejected.
func decodeTodoPatch(body io.Reader) (services.TodoPatch, error) {
	var patch services.TodoPatch

	raw, err := io.ReadAll(body)
	if err != nil {
		return patch, fmt.Errorf("failed to read request body")
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return patch, fmt.Errorf("request body must be a JSON object")
	}

	if value, present := fields["title"]; present {
		if isJSONNull(value) {
			return patch, fmt.Errorf("title cannot be null")
		}
		var title string
		if err := json.Unmarshal(value, &title); err != nil {
			return patch, fmt.Errorf("title must be a string")
		}
		patch.Title = &title
	}

	if value, present := fields["description"]; present {
		if isJSONNull(value) {
			patch.ClearDescription = true
		} else {
			var description string
			if err := json.Unmarshal(value, &description); err != nil {
				return patch, fmt.Errorf("description must be a string")
			}
			patch.Description = &description
		}
	}

	if value, present := fields["completed"]; present {
		if isJSONNull(value) {
			return patch, fmt.Errorf("completed cannot be null")
		}
		var completed bool
		if err := json.Unmarshal(value, &completed); err != nil {
			return patch, fmt.Errorf("completed must be a boolean")
		}
		patch.Completed = &completed
	}

	return patch, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func handleTodoError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error()})
	case errors.Is(err, services.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "todo not found"})
	default:
		log.Printf("todo request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process todo request"})
	}
}
