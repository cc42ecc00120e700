package handlers

import (
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct{}

// Health handles GET /health with the latest dependency snapshot.
func (h *HealthHandler) Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	state := "ok"
	if !status.CheckedAt.IsZero() && !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"success": code == http.StatusOK, "status": state, "dependencies": status})
}
