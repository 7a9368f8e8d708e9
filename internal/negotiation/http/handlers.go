package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apihttp "github.com/jeevanjiji/websphere-final/internal/api/http"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/negotiation/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) findOrCreateChat(c *gin.Context) {
	userID := c.GetString("firebase_uid")
	chat, created, err := h.svc.FindOrCreateChat(c.Request.Context(), userID, c.Param("applicationId"))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"ok": true, "chat": chat, "created": created})
}

type sendMessageReq struct {
	Type    string               `json:"message_type"`
	Content string               `json:"content"`
	File    *domain.FileDetails  `json:"file"`
	Offer   *domain.OfferDetails `json:"offer_details"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Type == "" {
		req.Type = string(domain.MessageText)
	}

	userID := c.GetString("firebase_uid")
	msg, err := h.svc.SendMessage(c.Request.Context(), userID, c.Param("chatId"), service.SendMessageInput{
		Type:    domain.MessageType(req.Type),
		Content: req.Content,
		File:    req.File,
		Offer:   req.Offer,
	})
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "message": msg})
}

func (h *Handler) listMessages(c *gin.Context) {
	userID := c.GetString("firebase_uid")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.svc.ListMessages(c.Request.Context(), userID, c.Param("chatId"), page, limit)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": msgs})
}

type respondToOfferReq struct {
	Action string `json:"action"`
}

func (h *Handler) respondToOffer(c *gin.Context) {
	var req respondToOfferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	userID := c.GetString("firebase_uid")
	res, err := h.svc.RespondToOffer(c.Request.Context(), userID, c.Param("messageId"), req.Action)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}

	resp := gin.H{"ok": true, "offer": res.Offer}
	if res.Project != nil {
		resp["project"] = res.Project
	}
	if res.Application != nil {
		resp["application"] = res.Application
	}
	c.JSON(http.StatusOK, resp)
}
