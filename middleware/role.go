package middleware

import (
	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/gin-gonic/gin"
)

// RequireRole admits only callers authenticated with one of roles. It must
// run after JWTAuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			unauthorized(c, "Insufficient authorization")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		utils.RespondError(c, requestLogger(c), utils.NewAuthorizationError("role %s may not access this resource", p.Role))
	}
}
