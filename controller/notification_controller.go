package controller

import (
	"net/http"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

// NotificationController is the read side of the fan-out: a user listing and
// acknowledging their own notifications.
type NotificationController struct {
	notifications *service.NotificationService
}

func NewNotificationController(notifications *service.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := actingUserID(ctx)
	if !ok {
		return
	}
	unreadOnly := ctx.Query("unread") == "true"
	notifications, err := c.notifications.ListNotifications(userID, unreadOnly)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

func (c *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := actingUserID(ctx)
	if !ok {
		return
	}
	notificationID, ok := uintParam(ctx, "notificationId")
	if !ok {
		return
	}
	if err := c.notifications.MarkRead(userID, notificationID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
