// middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWTAuthMiddleware authenticates the bearer token. The static admin token
// yields role admin; anything else must be a signed customer or provider JWT.
func JWTAuthMiddleware(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		if isAdminToken(tokenString, adminToken) {
			setPrincipal(c, models.Principal{UserID: "admin", Role: models.RoleAdmin})
			c.Next()
			return
		}

		sub, role, err := utils.ExtractClaims(tokenString)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}
		switch models.Role(role) {
		case models.RoleCustomer, models.RoleProvider:
		default:
			unauthorized(c, "Invalid token role")
			return
		}

		setPrincipal(c, models.Principal{UserID: sub, Role: models.Role(role)})
		c.Next()
	}
}

// JWTAuthAdminMiddleware only admits the configured static admin token.
func JWTAuthAdminMiddleware(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}
		if !isAdminToken(tokenString, adminToken) {
			unauthorized(c, "Unauthorized admin access")
			return
		}
		setPrincipal(c, models.Principal{UserID: "admin", Role: models.RoleAdmin})
		c.Next()
	}
}

// CurrentPrincipal returns the caller set by the auth middleware.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	id := c.GetString(utils.ContextUserID)
	role := c.GetString(utils.ContextRole)
	if id == "" || role == "" {
		return models.Principal{}, false
	}
	return models.Principal{UserID: id, Role: models.Role(role)}, true
}

func setPrincipal(c *gin.Context, p models.Principal) {
	c.Set(utils.ContextUserID, p.UserID)
	c.Set(utils.ContextRole, string(p.Role))
	if l, exists := c.Get(utils.ContextLogger); exists {
		if logger, ok := l.(*zap.Logger); ok {
			c.Set(utils.ContextLogger, logger.With(zap.String("userId", p.UserID), zap.String("role", string(p.Role))))
		}
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func isAdminToken(token, adminToken string) bool {
	return adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) == 1
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: message})
}
