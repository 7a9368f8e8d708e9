package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevanjiji/websphere-final/internal/annotate"
	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/negotiation/service"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
)

type env struct {
	router *gin.Engine
	appID  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	projects := store.NewProjectRepository(client)
	apps := store.NewApplicationRepository(client)
	chats := store.NewChatRepository(client)
	svc := service.New(projects, apps, chats,
		realtime.NopPublisher{}, notifications.Nop{}, annotate.Nop{}, locker.NewKeyed())

	ctx := context.Background()
	p := &domain.Project{
		ClientID:     "client-1",
		Title:        "branding",
		BudgetAmount: 1000,
		BudgetType:   domain.BudgetFixed,
		Deadline:     time.Now().Add(30 * 24 * time.Hour),
		Status:       domain.ProjectOpen,
	}
	require.NoError(t, projects.Create(ctx, p))
	app := &domain.Application{
		ProjectID:        p.ID,
		FreelancerID:     "fl-1",
		ClientID:         "client-1",
		ProposedRate:     900,
		ProposedTimeline: 14,
		Status:           domain.ApplicationPending,
	}
	require.NoError(t, apps.Create(ctx, app))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("firebase_uid", c.GetHeader("X-Test-UID"))
	})
	h := NewHandler(svc)
	h.Register(router.Group("/api/v1/chats"))
	h.RegisterMessages(router.Group("/api/v1/messages"))

	return &env{router: router, appID: app.ID}
}

func (e *env) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-UID", uid)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) openChat(t *testing.T, uid string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/chats/application/"+e.appID, uid, nil)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code)
	var resp struct {
		Chat domain.Chat `json:"chat"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Chat.ID
}

func TestChatEndpoints(t *testing.T) {
	e := newEnv(t)

	t.Run("find-or-create is 201 then 200", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/chats/application/"+e.appID, "fl-1", nil)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = e.do(t, http.MethodPost, "/api/v1/chats/application/"+e.appID, "client-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("strangers get 403", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/chats/application/"+e.appID, "stranger", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMessageEndpoints(t *testing.T) {
	e := newEnv(t)
	chatID := e.openChat(t, "fl-1")

	t.Run("text message round trip", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", "fl-1",
			map[string]any{"content": "hello"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = e.do(t, http.MethodGet, "/api/v1/chats/"+chatID+"/messages", "client-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Messages []domain.Message `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "hello", resp.Messages[0].Content)
	})

	t.Run("offer send and accept over the wire", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", "fl-1", map[string]any{
			"message_type":  "offer",
			"offer_details": map[string]any{"proposed_rate": 900.0, "timeline_days": 7},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var sent struct {
			Message domain.Message `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
		require.Equal(t, domain.OfferPending, sent.Message.OfferStatus)

		w = e.do(t, http.MethodPut, "/api/v1/messages/"+sent.Message.ID+"/respond-to-offer", "client-1",
			map[string]any{"action": "accept"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Offer   domain.Message `json:"offer"`
			Project domain.Project `json:"project"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domain.OfferAccepted, resp.Offer.OfferStatus)
		require.NotNil(t, resp.Project.AgreedPrice)
		assert.Equal(t, 900.0, *resp.Project.AgreedPrice)
	})

	t.Run("offer above the cap is 400", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/chats/"+chatID+"/messages", "fl-1", map[string]any{
			"message_type":  "offer",
			"offer_details": map[string]any{"proposed_rate": 5000.0, "timeline_days": 7},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
