package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/services"
)

type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// ListNotifications returns the caller's notifications (?limit=)
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.Service.ListForUser(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Service.MarkRead(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

// MarkAllRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.Service.MarkAllRead(c.Request.Context(), c.GetString("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all marked read"})
}
