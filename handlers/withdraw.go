package handlers

import (
	"net/http"

	withdrawRepo "github.com/Rohit420bhainwal/book-my-event-api/database/repository/withdraw"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

type WithdrawHandler struct {
	Service payout.WithdrawService
}

type withdrawRequest struct {
	Destination string `json:"destination"`
	UpiID       string `json:"upiId"`
}

func (r withdrawRequest) destination() string {
	if r.Destination != "" {
		return r.Destination
	}
	return r.UpiID
}

type withdrawStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// RequestBookingWithdraw handles POST /bookings/:id/withdraw and
// /bookings/:id/requestWithdraw.
func (h *WithdrawHandler) RequestBookingWithdraw(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req withdrawRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	w, err := h.Service.RequestWithdraw(c.Request.Context(), p.UserID, c.Param("id"), req.destination())
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Withdrawal requested", w)
}

// RequestProviderWithdraw handles POST /withdraw.
func (h *WithdrawHandler) RequestProviderWithdraw(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req withdrawRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	w, err := h.Service.RequestProviderWithdraw(c.Request.Context(), p.UserID, req.destination())
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Withdrawal requested", w)
}

// UpdateStatus handles PUT /withdraw/:id/status (admin).
func (h *WithdrawHandler) UpdateStatus(c *gin.Context) {
	var req withdrawStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		w   *models.Withdraw
		err error
		msg string
	)
	switch models.WithdrawStatus(req.Status) {
	case models.WithdrawApproved:
		w, err = h.Service.Approve(c.Request.Context(), c.Param("id"))
		msg = "Withdrawal approved and paid out"
	case models.WithdrawRejected:
		w, err = h.Service.Reject(c.Request.Context(), c.Param("id"), req.Reason)
		msg = "Withdrawal rejected"
	default:
		fail(c, utils.NewValidationError("status must be approved or rejected"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, msg, w)
}

// ListMine handles GET /withdraw/mine.
func (h *WithdrawHandler) ListMine(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.Service.List(c.Request.Context(), withdrawRepo.WithdrawFilter{
		ProviderID: p.UserID,
		Status:     models.WithdrawStatus(c.Query("status")),
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Withdrawals fetched", out)
}
