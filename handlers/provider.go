package handlers

import (
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/services/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/services/user"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

type ProviderHandler struct {
	Service   provider.ProviderService
	Users     user.UserService
	Withdraws payout.WithdrawService
}

// GetProviderByIDHandler handles GET /providers/:id.
func (h *ProviderHandler) GetProviderByIDHandler(c *gin.Context) {
	prov, err := h.Service.GetProviderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Provider fetched", prov)
}

// ConnectStripe handles POST /provider/stripe/account.
func (h *ProviderHandler) ConnectStripe(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.Service.ConnectStripe(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Onboarding link created", out)
}

// Earnings handles GET /provider/earnings.
func (h *ProviderHandler) Earnings(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	summary, err := h.Withdraws.Earnings(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Earnings fetched", summary)
}

// UpdateFCMToken handles PUT /users/me/fcm-token for customers and providers.
func (h *ProviderHandler) UpdateFCMToken(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req struct {
		FCMToken string `json:"fcmToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Users.UpdateFCMToken(c.Request.Context(), p, req.FCMToken); err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Device token updated", nil)
}
