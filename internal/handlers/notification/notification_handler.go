// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"

	"fanclash-service/internal/pkg/response"
	service "fanclash-service/internal/service/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService *service.Service
}

func NewNotificationHandler(notificationService *service.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

type eventsQuery struct {
	TransactionID int64 `form:"transaction_id" binding:"required,min=1"`
}

// ListEvents returns the recorded outcome events for one transaction.
func (h *NotificationHandler) ListEvents(c *gin.Context) {
	var query eventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, "transaction_id is required", err)
		return
	}

	events, err := h.notificationService.Events(c.Request.Context(), query.TransactionID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list events", err)
		return
	}

	response.Success(c, http.StatusOK, "events retrieved", gin.H{
		"events": events,
		"count":  len(events),
	})
}
