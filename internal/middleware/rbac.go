package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/uvems/uvems-api/internal/models"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
	"github.com/uvems/uvems-api/pkg/response"
)

// RequireRole lets a request through only when the JWT carries one of the
// allowed roles. Must run after the JWT middleware.
func RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, role := range allowed {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
