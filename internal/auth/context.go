package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetRole returns the authenticated user's role or empty string.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == RoleAdmin
}
