package handlers

import (
	"io"
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/services/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the payload read before signature verification.
const maxWebhookBody = 1 << 16

type WebhookHandler struct {
	Service provider.WebhookService
}

// StripeWebhook handles POST /stripe/webhook. The raw body is needed for
// signature verification, so it is read before any binding.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, utils.NewValidationError("failed to read webhook body"))
		return
	}
	if err := h.Service.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}
