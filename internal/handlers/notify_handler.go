package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"recap-service/internal/notify"
)

type NotifyHandler struct {
	Scheduler *notify.Scheduler
}

func NewNotifyHandler(s *notify.Scheduler) *NotifyHandler {
	return &NotifyHandler{Scheduler: s}
}

type permissionRequest struct {
	State string `json:"state" binding:"required"`
}

// ReportPermission records the device-side permission decision and runs
// the matching scheduler transition.
func (h *NotifyHandler) ReportPermission(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := notify.ParsePermissionState(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Scheduler.ReportPermission(c.Request.Context(), userID, state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *NotifyHandler) GetStatus(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	status, err := h.Scheduler.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// MarkSettingsAlertSeen suppresses the settings prompt permanently once
// the user has dismissed it.
func (h *NotifyHandler) MarkSettingsAlertSeen(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if err := h.Scheduler.MarkSettingsAlertSeen(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings alert suppressed"})
}

// ShouldPromptSettings tells the client whether the "enable in settings"
// alert may still be shown.
func (h *NotifyHandler) ShouldPromptSettings(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	show, err := h.Scheduler.ShouldPromptSettings(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"show": show})
}
