package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apihttp "github.com/jeevanjiji/websphere-final/internal/api/http"
	"github.com/jeevanjiji/websphere-final/internal/applications/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type submitReq struct {
	ProjectID        string  `json:"project_id"`
	CoverLetter      string  `json:"cover_letter"`
	ProposedRate     float64 `json:"proposed_rate"`
	ProposedTimeline int     `json:"proposed_timeline_days"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	userID := c.GetString("firebase_uid")
	app, err := h.svc.Submit(c.Request.Context(), userID, service.SubmitInput{
		ProjectID:        req.ProjectID,
		CoverLetter:      req.CoverLetter,
		ProposedRate:     req.ProposedRate,
		ProposedTimeline: req.ProposedTimeline,
	})
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "application": app})
}

func (h *Handler) listMine(c *gin.Context) {
	userID := c.GetString("firebase_uid")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := h.svc.ListMine(c.Request.Context(), userID, c.Query("status"), page, limit)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "applications": items})
}

func (h *Handler) listForProject(c *gin.Context) {
	userID := c.GetString("firebase_uid")
	items, err := h.svc.ListForProject(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "applications": items})
}

type respondReq struct {
	Status string `json:"status"`
}

func (h *Handler) respond(c *gin.Context) {
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	var action string
	switch req.Status {
	case "accepted", "accept":
		action = service.ActionAccept
	case "rejected", "reject":
		action = service.ActionReject
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "status must be accepted or rejected"})
		return
	}

	userID := c.GetString("firebase_uid")
	res, err := h.svc.Respond(c.Request.Context(), userID, c.Param("id"), action)
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}

	resp := gin.H{"ok": true, "application": res.Application}
	if res.Award != nil {
		resp["chat_id"] = res.Award.ChatID
		resp["workspace_id"] = res.Award.WorkspaceID
		resp["chat_created"] = res.Award.ChatCreated
		resp["workspace_created"] = res.Award.WorkspaceCreated
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) withdraw(c *gin.Context) {
	userID := c.GetString("firebase_uid")
	app, err := h.svc.Withdraw(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		apihttp.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "application": app})
}
