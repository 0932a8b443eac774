package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsAdmin reports whether the authenticated caller is a venue administrator.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
