package http

import "github.com/gin-gonic/gin"

// Register attaches chat routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/application/:applicationId", h.findOrCreateChat)
	rg.GET("/:chatId/messages", h.listMessages)
	rg.POST("/:chatId/messages", h.sendMessage)
}

// RegisterMessages attaches the message-scoped routes. They live under
// their own prefix because a static "messages" segment cannot share a
// level with the :chatId param in gin's routing tree.
func (h *Handler) RegisterMessages(rg *gin.RouterGroup) {
	rg.PUT("/:messageId/respond-to-offer", h.respondToOffer)
}
