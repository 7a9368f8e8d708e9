package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxUserDBID    = "user_db_id"
	CtxUserRole    = "user_role"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// UserRole extracts the marketplace role from the Gin context.
func UserRole(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserRole))
}

func UserDBID(c *gin.Context) string {
	v := c.GetString(CtxUserDBID)
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
