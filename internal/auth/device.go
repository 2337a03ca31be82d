package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "X-Device-ID"

const contextKey = "deviceID"

// DeviceMiddleware validates the X-Device-ID header. Devices self-identify
// with an opaque identifier; there is no further authentication.
func DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(headerName)
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Missing x-device-id header",
			})
			return
		}

		c.Set(contextKey, deviceID)
		c.Next()
	}
}

// DeviceID returns the validated device identifier for the request.
func DeviceID(c *gin.Context) string {
	return c.GetString(contextKey)
}
