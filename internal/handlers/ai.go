package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"todo-backend/internal/ai"
)

type AIHandler struct {
	breakdown ai.Breakdown
}

func NewAIHandler(breakdown ai.Breakdown) *AIHandler {
	return &AIHandler{breakdown: breakdown}
}

// Breakdown suggests 3-5 subtasks for a task title. Upstream failures are
// reported as 502 so the client can tell a broken integration apart from an
// empty suggestion.
func (h *AIHandler) Breakdown(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	subtasks, err := h.breakdown.Subtasks(c.Request.Context(), req.Title)
	if err != nil {
		log.Printf("task breakdown failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI service call failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks})
}
