package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lnbits/chat/internal/service"
	"github.com/lnbits/chat/pkg/model"
)

// PaymentHandler is the settlement ingress. Notifications are confirmed
// against the payment processor before anything is applied, so the route
// tolerates redelivery and forged calls alike.
type PaymentHandler struct {
	chats *service.ChatService
}

func NewPaymentHandler(chats *service.ChatService) *PaymentHandler {
	return &PaymentHandler{chats: chats}
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	var notif service.PaymentNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if notif.PaymentHash == "" {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("missing payment hash", "INVALID_REQUEST"))
		return
	}
	if err := h.chats.PaymentReceived(c.Request.Context(), notif); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"applied": true}))
}
