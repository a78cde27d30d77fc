package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
	service "github.com/mamadbah2/seedbank/internal/service/whatsapp"
)

// WebhookHandler handles inbound WhatsApp commands and staff broadcasts.
type WebhookHandler struct {
	svc    service.MessagingService
	roles  ledger.Roles
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc service.MessagingService, roles ledger.Roles, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, roles: roles, logger: logger}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	resp, err := h.svc.VerifyWebhookToken(mode, token, challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	c.String(http.StatusOK, resp)
}

// Receive ingests webhook callbacks. Processing failures are still
// acknowledged: Meta redelivers on non-2xx and a redelivered withdraw command
// would be applied twice.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
	}

	c.Status(http.StatusOK)
}

// SendMessage lets staff push a message to a WhatsApp number. Requires a
// known PIN in X-Edit-Pin.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	role := h.roles.Resolve(c.GetHeader("X-Edit-Pin"))
	if role == ledger.UnknownRole {
		c.JSON(http.StatusForbidden, failure{Success: false, Message: "a valid PIN is required"})
		return
	}

	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || req.Message == "" {
		badRequest(c, "to and message are required")
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("failed sending outbound", zap.String("role", role), zap.Error(err))
		c.JSON(http.StatusBadGateway, failure{Success: false, Message: "unable to send message"})
		return
	}

	c.Status(http.StatusAccepted)
}
