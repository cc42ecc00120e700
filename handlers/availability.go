package handlers

import (
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/services/booking"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	Service booking.ScheduleService
}

// SaveSchedule handles POST /provider/availability.
func (h *ScheduleHandler) SaveSchedule(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req booking.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.Service.SaveSchedule(c.Request.Context(), p.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Availability configuration saved", cfg)
}

// GetSchedule handles GET /provider/availability/:serviceId.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	cfg, err := h.Service.GetSchedule(c.Request.Context(), c.Param("serviceId"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Availability configuration fetched", cfg)
}

// Monthly handles GET /availability/month?serviceId=&month=YYYY-MM.
func (h *ScheduleHandler) Monthly(c *gin.Context) {
	out, err := h.Service.MonthlyAvailability(c.Request.Context(), c.Query("serviceId"), c.Query("month"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.RespondOK(c, http.StatusOK, "Monthly availability fetched", out)
}
