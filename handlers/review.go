package handlers

import (
	"net/http"
	"strconv"

	"github.com/Rohit420bhainwal/book-my-event-api/services/review"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	Service review.ReviewService
}

// SubmitReview handles POST /reviews.
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req review.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rv, err := h.Service.Submit(c.Request.Context(), p.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusCreated, "Review submitted", rv)
}

// ListProviderReviews handles GET /providers/:id/reviews.
func (h *ReviewHandler) ListProviderReviews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	out, err := h.Service.ListByProvider(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Reviews fetched", out)
}
