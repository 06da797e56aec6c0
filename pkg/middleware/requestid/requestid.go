package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderKey is the HTTP header carrying the request id.
	HeaderKey = "X-Request-ID"
	// ContextKey is the gin context key holding the request id.
	ContextKey = "request_id"
)

// Middleware assigns an id to each request, honoring an incoming header.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKey, id)
		c.Writer.Header().Set(HeaderKey, id)
		c.Next()
	}
}

// Value extracts the request id from the context, if any.
func Value(c *gin.Context) string {
	if v, ok := c.Get(ContextKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
