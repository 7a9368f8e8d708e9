package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeevanjiji/websphere-final/internal/users"
)

// WithUser runs after the Firebase middleware: it makes sure a users row
// exists for the authd uid and puts the db id and role in context.
func WithUser(userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := UserFirebaseUID(c)
		if fuid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
			c.Abort()
			return
		}

		uid, role, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			FirebaseUID: fuid,
			Email:       c.GetString("email"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user"})
			c.Abort()
			return
		}

		c.Set(CtxUserDBID, uid)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}
