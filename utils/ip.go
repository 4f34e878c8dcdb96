package utils

import "github.com/gin-gonic/gin"

// GetIP returns the client IP the way the rest of the app trusts it,
// honouring proxy headers through gin's trusted-proxy handling.
func GetIP(c *gin.Context) string {
	return c.ClientIP()
}
