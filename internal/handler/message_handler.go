package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medi-online/clinic-api/internal/service"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/response"
)

// SendMessageRequest carries a message body for an appointment thread.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// MessageHandler exposes appointment messaging endpoints.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler constructs handler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// List godoc
// @Summary List messages for an appointment
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param appointmentId path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /messages/appointments/{appointmentId} [get]
func (h *MessageHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	messages, err := h.messages.List(c.Request.Context(), claims, c.Param("appointmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Send godoc
// @Summary Send a message on an appointment thread
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appointmentId path string true "Appointment ID"
// @Param payload body SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /messages/appointments/{appointmentId} [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), claims, c.Param("appointmentId"), req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
