package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// OptionalUser sets a firebase uid in context without enforcing auth.
// - If X-User-Id is missing, it falls back to "demo-user".
// - Use this ONLY for development/testing.
func OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}
		role := strings.TrimSpace(c.GetHeader("X-User-Role"))
		if role == "" {
			role = "freelancer"
		}

		c.Set(CtxFirebaseUID, uid)
		c.Set(CtxUserRole, role)

		c.Next()
	}
}

// DevVerifier treats the presented token as the user id. Pairs with
// OptionalUser when Firebase auth is disabled; dev/testing only.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}
