package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyReadOnly is set on every request so templates can hide the
// edit controls.
const ContextKeyReadOnly = "read_only"

const readOnlyMessage = "This library is read-only"

// ReadOnlyMiddleware blocks every non-GET request when enabled.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyReadOnly, enabled)
		if !enabled || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if strings.Contains(c.GetHeader("Accept"), "application/json") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     readOnlyMessage,
				"read_only": true,
			})
			return
		}
		c.String(http.StatusForbidden, readOnlyMessage)
		c.Abort()
	}
}

// IsReadOnly reports whether the read-only flag is set for this request.
func IsReadOnly(c *gin.Context) bool {
	return c.GetBool(ContextKeyReadOnly)
}
