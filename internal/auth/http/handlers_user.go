package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeevanjiji/websphere-final/internal/auth/domain"
)

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	firebaseUID := c.GetString("firebase_uid")
	if firebaseUID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetUserByFirebaseUID(firebaseUID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// SyncUser syncs Firebase user data to PostgreSQL. Called after Firebase
// authentication so the user row exists before any marketplace call.
// The optional body carries profile fields and the signup role.
func (h *Handler) SyncUser(c *gin.Context) {
	firebaseUID := c.GetString("firebase_uid")
	email := c.GetString("email")

	if firebaseUID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var body struct {
		Email       string                 `json:"email,omitempty"`
		DisplayName *string                `json:"display_name,omitempty"`
		PhotoURL    *string                `json:"photo_url,omitempty"`
		Bio         *string                `json:"bio,omitempty"`
		Role        string                 `json:"role,omitempty"`
		Preferences map[string]interface{} `json:"preferences,omitempty"`
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON body"})
			return
		}
	}

	if body.Role != "" && !domain.ValidRole(body.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "role must be client or freelancer"})
		return
	}

	if body.Email != "" {
		email = body.Email
	} else if email == "" {
		email = firebaseUID + "@firebase.local"
	}

	req := &domain.CreateUserRequest{
		FirebaseUID: firebaseUID,
		Email:       email,
		DisplayName: body.DisplayName,
		PhotoURL:    body.PhotoURL,
		Bio:         body.Bio,
		Role:        body.Role,
		Preferences: body.Preferences,
	}

	user, err := h.authService.SyncUser(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to sync user"})
		return
	}

	_ = h.authService.RecordLogin(firebaseUID)

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// UpdateProfile updates the user's profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	firebaseUID := c.GetString("firebase_uid")
	if firebaseUID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "user not authenticated"})
		return
	}

	var req struct {
		DisplayName *string                `json:"display_name,omitempty"`
		PhotoURL    *string                `json:"photo_url,omitempty"`
		Bio         *string                `json:"bio,omitempty"`
		Preferences map[string]interface{} `json:"preferences,omitempty"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	updateReq := &domain.UpdateUserRequest{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Bio:         req.Bio,
		Preferences: req.Preferences,
	}

	user, err := h.authService.UpdateUser(firebaseUID, updateReq)
	if err != nil {
		if err == domain.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}
