package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
)

// WriteError renders a failure response. Typed domain errors carry their
// own status; anything else is a 500 with a generic message so internal
// details stay out of the response body.
func WriteError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(de.HTTPStatus(), gin.H{"ok": false, "error": de.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
}
