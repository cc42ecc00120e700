package handlers

import (
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	Service booking.BookingService
}

type confirmBookingRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CreatePaymentIntent handles POST /bookings/payment-intent.
func (h *BookingHandler) CreatePaymentIntent(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req booking.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.Service.CreateIntent(c.Request.Context(), p.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Payment intent created", resp)
}

// ConfirmBooking handles POST /bookings/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.Confirm(c.Request.Context(), p.UserID, req.PaymentIntentID)
	if err != nil {
		fail(c, err)
		return
	}
	getLogger(c).Info("booking confirmed by customer", zap.String("bookingId", b.ID))
	utils.RespondOK(c, http.StatusCreated, "Booking created", b)
}

// UpdateStatus handles PUT /bookings/:id/status for provider confirm/reject.
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var accept bool
	switch req.Status {
	case string(models.BookingConfirmed), "accepted":
		accept = true
	case "rejected":
	default:
		fail(c, utils.NewValidationError("status must be confirmed or rejected"))
		return
	}

	b, err := h.Service.Respond(c.Request.Context(), p.UserID, c.Param("id"), accept, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Booking confirmed"
	if !accept {
		msg = "Booking rejected and refunded"
	}
	utils.RespondOK(c, http.StatusOK, msg, b)
}

// ProviderCancel handles POST /bookings/provider/:id/cancel.
func (h *BookingHandler) ProviderCancel(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.Service.ProviderCancel(c.Request.Context(), p.UserID, c.Param("id"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Booking cancelled and refunded", res)
}

// Complete handles PUT /bookings/:id/complete.
func (h *BookingHandler) Complete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	b, err := h.Service.Complete(c.Request.Context(), p.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Booking completed", b)
}

// CreateRemainingIntent handles POST /bookings/:id/remaining-intent.
func (h *BookingHandler) CreateRemainingIntent(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	resp, err := h.Service.CreateRemainingIntent(c.Request.Context(), p.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Remaining payment intent created", resp)
}

// ConfirmRemaining handles POST /bookings/:id/remaining/confirm.
func (h *BookingHandler) ConfirmRemaining(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.ConfirmRemaining(c.Request.Context(), p.UserID, c.Param("id"), req.PaymentIntentID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Remaining payment received", b)
}

// Availability handles GET /bookings/availability.
func (h *BookingHandler) Availability(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	available, err := h.Service.CheckAvailability(c.Request.Context(),
		c.Query("serviceId"), c.Query("date"), c.Query("slot"), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Availability checked", gin.H{"available": available})
}

// GetBooking handles GET /bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	b, err := h.Service.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Booking fetched", b)
}

// ListCustomerBookings handles GET /bookings/customer.
func (h *BookingHandler) ListCustomerBookings(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.Service.ListForCustomer(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Bookings fetched", out)
}

// ListProviderBookings handles GET /bookings/provider?status=.
func (h *BookingHandler) ListProviderBookings(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.Service.ListForProvider(c.Request.Context(), p.UserID, models.BookingStatus(c.Query("status")))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Bookings fetched", out)
}
