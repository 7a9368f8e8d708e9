package http

import "github.com/gin-gonic/gin"

// Register mounts the profile endpoints on the /auth group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/sync", h.SyncUser)
	rg.GET("/profile", h.GetProfile)
	rg.PUT("/profile", h.UpdateProfile)
}
