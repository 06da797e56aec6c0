package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uvems/uvems-api/internal/middleware"
)

func currentUserID(c *gin.Context) string {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return ""
	}
	return claims.UserID
}
