package realtime

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenVerifier resolves a bearer token to a user ID. Implemented by the
// firebase auth adapter.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect cross-origin from the SPA; auth happens via token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades authenticated requests to websocket connections and
// wires them into the hub.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
}

func NewHandler(hub *Hub, verifier TokenVerifier) *Handler {
	return &Handler{hub: hub, verifier: verifier}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.Serve)
}

// Serve authenticates the connection, upgrades it and starts the pumps.
// The token arrives as a query parameter because browsers cannot set
// headers on websocket dials.
func (h *Handler) Serve(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		if bearer := c.GetHeader("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			token = bearer[7:]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing token"})
		return
	}

	userID, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] upgrade user=%s: %v", userID, err)
		return
	}

	client := newClient(h.hub, conn, userID, uuid.New().String())
	h.hub.Register(client)

	go client.writePump()
	go client.readPump(context.Background())
}
