package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"recap-service/internal/service"
)

// DailyHandler exposes the daily lifecycle: selection, answer submission,
// migration, and the progress summary. The user is identified by the
// X-User-ID header set by the auth middleware.
type DailyHandler struct {
	Service *service.DailyService
}

func NewDailyHandler(s *service.DailyService) *DailyHandler {
	return &DailyHandler{Service: s}
}

type submitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

func (h *DailyHandler) SelectDaily(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	selection, err := h.Service.SelectDaily(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, selection)
}

func (h *DailyHandler) SubmitAnswer(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.SubmitAnswer(c.Request.Context(), userID, req.QuestionID, req.Answer)
	if err != nil {
		if errors.Is(err, service.ErrQuestionNotActive) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DailyHandler) RunDailyMigration(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	moved, err := h.Service.RunDailyMigration(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "moved": moved})
}

func (h *DailyHandler) GetDailyProgress(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	progress, err := h.Service.GetDailyProgress(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}
