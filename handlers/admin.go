package handlers

import (
	"net/http"
	"strconv"

	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/services/provider"
	"github.com/Rohit420bhainwal/book-my-event-api/services/refund"
	"github.com/Rohit420bhainwal/book-my-event-api/services/settings"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	Refunds   refund.Coordinator
	Withdraws payout.WithdrawService
	Settings  settings.SettingsService
	Providers provider.ProviderService
}

type providerStatusRequest struct {
	Status models.ProviderStatus `json:"status" binding:"required"`
}

// ListProviders handles GET /admin/providers?status=.
func (h *AdminHandler) ListProviders(c *gin.Context) {
	out, err := h.Providers.ListProviders(c.Request.Context(), models.ProviderStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Providers fetched", gin.H{"count": len(out), "providers": out})
}

// GetProvider handles GET /admin/providers/:id.
func (h *AdminHandler) GetProvider(c *gin.Context) {
	p, err := h.Providers.GetProviderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Provider fetched", p)
}

// UpdateProviderStatus handles PUT /admin/providers/:id/status.
func (h *AdminHandler) UpdateProviderStatus(c *gin.Context) {
	var req providerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Providers.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	getLogger(c).Info("provider status updated", zap.String("providerId", p.ID), zap.String("status", string(p.Status)))
	utils.RespondOK(c, http.StatusOK, "Provider status updated", p)
}

// RefundBooking handles POST /admin/refund/:bookingId.
func (h *AdminHandler) RefundBooking(c *gin.Context) {
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "refunded by admin"
	}
	bookingID := c.Param("bookingId")
	res, err := h.Refunds.Refund(c.Request.Context(), bookingID, req.Reason, models.InitiatedByAdmin)
	if err != nil {
		fail(c, err)
		return
	}
	if res.Refund != nil {
		getLogger(c).Info("admin refund processed", zap.String("bookingId", bookingID), zap.Float64("amount", res.Refund.Amount))
	}
	utils.RespondOK(c, http.StatusOK, "Refund processed", res)
}

// ListRefunds handles GET /admin/refunds?bookingId=&limit=.
func (h *AdminHandler) ListRefunds(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	out, err := h.Refunds.List(c.Request.Context(), c.Query("bookingId"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Refunds fetched", out)
}

// ListWithdraws handles GET /admin/withdraws?status=&providerId=.
func (h *AdminHandler) ListWithdraws(c *gin.Context) {
	out, err := h.Withdraws.List(c.Request.Context(), withdrawRepo.WithdrawFilter{
		ProviderID: c.Query("providerId"),
		Status:     models.WithdrawStatus(c.Query("status")),
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Withdrawals fetched", out)
}

// RunPayouts handles POST /admin/payouts/run.
func (h *AdminHandler) RunPayouts(c *gin.Context) {
	results, err := h.Withdraws.RunAutoPayout(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	utils.RespondOK(c, http.StatusOK, "Payout run finished", gin.H{
		"processed": len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

// GetCommission handles GET /admin/settings/commission.
func (h *AdminHandler) GetCommission(c *gin.Context) {
	policy, err := h.Settings.Commission(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Commission fetched", policy)
}

// UpdateCommission handles PUT /admin/settings/commission.
func (h *AdminHandler) UpdateCommission(c *gin.Context) {
	var policy models.CommissionPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.Settings.UpdateCommission(c.Request.Context(), policy)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Commission updated", s)
}
