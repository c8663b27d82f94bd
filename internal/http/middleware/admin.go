package middleware

import (
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// HeaderAuthenticatedUser carries the admin identity asserted by the edge
// proxy. Authentication happens in front of this service.
const HeaderAuthenticatedUser = "X-Authenticated-User"

// DefaultAdminName is used when the proxy sends no identity.
const DefaultAdminName = "Admin"

const adminUserKey = "adminUser"

// AdminIdentity stores the trimmed X-Authenticated-User value (at most 100
// runes) in the Gin context.
func AdminIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := strings.TrimSpace(c.GetHeader(HeaderAuthenticatedUser)); v != "" {
			if utf8.RuneCountInString(v) > 100 {
				v = string([]rune(v)[:100])
			}
			c.Set(adminUserKey, v)
		}
		c.Next()
	}
}

// AdminName returns the admin identity for reply attribution, falling back
// to DefaultAdminName.
func AdminName(c *gin.Context) string {
	if s := adminFromCtx(c); s != "" {
		return s
	}
	return DefaultAdminName
}

func adminFromCtx(c *gin.Context) string {
	v, _ := c.Get(adminUserKey)
	return asString(v)
}
