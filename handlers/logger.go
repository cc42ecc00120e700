package handlers

import (
	"net/http"

	"github.com/Rohit420bhainwal/book-my-event-api/middleware"
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request logger from the Gin context or falls back
// to the process logger.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get(utils.ContextLogger); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// caller returns the authenticated principal, writing a 401 when absent.
func caller(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Insufficient authorization", "")
	}
	return p, ok
}

func fail(c *gin.Context, err error) {
	utils.RespondError(c, getLogger(c), err)
}

func badRequest(c *gin.Context, err error) {
	fail(c, utils.NewValidationError("invalid request body: %v", err))
}
