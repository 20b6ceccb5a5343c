package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/service"
)

// NotificationHandler accepts notifications and hands them to the sinks.
// Successful requests answer 202 since delivery is asynchronous.
type NotificationHandler struct {
	notifications service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// SendEmail godoc
// @Summary Queue an email
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.EmailNotificationRequest true "Email"
// @Success 202 {object} dto.NotificationResponse
// @Router /notifications/email [post]
func (h *NotificationHandler) SendEmail(c *gin.Context) {
	var req dto.EmailNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id, err := h.notifications.SendEmail(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NotificationResponse{
		Message:   "Email notification queued",
		MessageID: id,
	})
}

// SendSMS godoc
// @Summary Send an SMS
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.SMSNotificationRequest true "SMS"
// @Success 202 {object} dto.NotificationResponse
// @Router /notifications/sms [post]
func (h *NotificationHandler) SendSMS(c *gin.Context) {
	var req dto.SMSNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id, err := h.notifications.SendSMS(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NotificationResponse{
		Message:   "SMS notification sent",
		MessageID: id,
	})
}

// SendPush godoc
// @Summary Queue a push notification
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.PushNotificationRequest true "Push"
// @Success 202 {object} dto.NotificationResponse
// @Router /notifications/push [post]
func (h *NotificationHandler) SendPush(c *gin.Context) {
	var req dto.PushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	id, err := h.notifications.SendPush(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NotificationResponse{
		Message:   "Push notification queued",
		MessageID: id,
	})
}

// SendBatch godoc
// @Summary Queue a batch of notifications
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.BatchNotificationRequest true "Batch"
// @Success 202 {object} dto.BatchNotificationResponse
// @Router /notifications/batch [post]
func (h *NotificationHandler) SendBatch(c *gin.Context) {
	var req dto.BatchNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	resp, err := h.notifications.SendBatch(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}
