package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevanjiji/websphere-final/internal/applications/service"
	authdomain "github.com/jeevanjiji/websphere-final/internal/auth/domain"
	"github.com/jeevanjiji/websphere-final/internal/award"
	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/domain"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
)

type env struct {
	router   *gin.Engine
	projects *store.ProjectRepository
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
	coordinator := award.NewCoordinator(
		projects, apps,
		store.NewChatRepository(client),
		store.NewWorkspaceRepository(client),
		store.NewRepairQueue(client),
		realtime.NopPublisher{}, notifications.Nop{}, locker.NewKeyed(),
	)
	svc := service.New(projects, apps, coordinator, realtime.NopPublisher{}, notifications.Nop{})

	router := gin.New()
	// Stand-in for the auth middleware: the test caller picks its user
	// via the X-Test-UID header; the role follows the uid naming
	// convention unless X-Test-Role overrides it.
	router.Use(func(c *gin.Context) {
		uid := c.GetHeader("X-Test-UID")
		c.Set("firebase_uid", uid)
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			role = authdomain.RoleFreelancer
			if strings.HasPrefix(uid, "client") {
				role = authdomain.RoleClient
			}
		}
		c.Set("user_role", role)
	})
	NewHandler(svc).Register(router.Group("/api/v1/applications"))

	return &env{router: router, projects: projects}
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

func (e *env) seedProject(t *testing.T, clientID string) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ClientID:     clientID,
		Title:        "storefront",
		BudgetAmount: 1000,
		BudgetType:   domain.BudgetFixed,
		Deadline:     time.Now().Add(30 * 24 * time.Hour),
		Status:       domain.ProjectOpen,
	}
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

func submitBody(projectID string, rate float64) map[string]any {
	return map[string]any{
		"project_id":             projectID,
		"proposed_rate":          rate,
		"proposed_timeline_days": 7,
	}
}

func TestSubmitEndpoint(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject(t, "client-1")

	t.Run("creates the application", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-1", submitBody(p.ID, 900))
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			OK          bool               `json:"ok"`
			Application domain.Application `json:"application"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, domain.ApplicationPending, resp.Application.Status)
	})

	t.Run("maps validation errors to 400", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-2", submitBody(p.ID, 5000))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps missing project to 404", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-2", submitBody("nope", 900))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRespondEndpoint(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject(t, "client-1")

	w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-1", submitBody(p.ID, 900))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Application domain.Application `json:"application"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	appID := created.Application.ID

	t.Run("rejects unknown status values", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/status", "client-1",
			map[string]any{"status": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-owner gets 403", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/status", "client-2",
			map[string]any{"status": "accepted"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("accept returns the award artifacts", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/status", "client-1",
			map[string]any{"status": "accepted"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Application      domain.Application `json:"application"`
			ChatID           string             `json:"chat_id"`
			WorkspaceID      string             `json:"workspace_id"`
			ChatCreated      bool               `json:"chat_created"`
			WorkspaceCreated bool               `json:"workspace_created"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domain.ApplicationAwarded, resp.Application.Status)
		assert.NotEmpty(t, resp.ChatID)
		assert.NotEmpty(t, resp.WorkspaceID)
		assert.True(t, resp.ChatCreated)
		assert.True(t, resp.WorkspaceCreated)
	})

	t.Run("second accept is a 409", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/status", "client-1",
			map[string]any{"status": "accepted"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestWithdrawEndpoint(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject(t, "client-1")

	w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-1", submitBody(p.ID, 900))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Application domain.Application `json:"application"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = e.do(t, http.MethodDelete, "/api/v1/applications/"+created.Application.ID, "fl-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/api/v1/applications/"+created.Application.ID, "fl-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListEndpoints(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < 3; i++ {
		p := e.seedProject(t, fmt.Sprintf("client-%d", i))
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-1", submitBody(p.ID, 900))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("my applications paginate", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/applications/my?page=1&limit=2", "fl-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Applications []domain.Application `json:"applications"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Applications, 2)
	})

	t.Run("project listing is client-only", func(t *testing.T) {
		p := e.seedProject(t, "client-x")
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-2", submitBody(p.ID, 900))
		require.Equal(t, http.StatusCreated, w.Code)

		w = e.do(t, http.MethodGet, "/api/v1/applications/project/"+p.ID, "client-x", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/v1/applications/project/"+p.ID, "fl-2", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRoleScoping(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject(t, "client-1")

	t.Run("clients cannot submit applications", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/applications", "client-1", submitBody(p.ID, 900))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("freelancers cannot respond", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/applications", "fl-1", submitBody(p.ID, 900))
		require.Equal(t, http.StatusCreated, w.Code)
		var created struct {
			Application domain.Application `json:"application"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		appID := created.Application.ID

		w = e.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/status", "fl-1",
			map[string]string{"status": "accepted"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("clients cannot withdraw", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/applications/my", "fl-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Applications []domain.Application `json:"applications"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Applications)

		w = e.do(t, http.MethodDelete, "/api/v1/applications/"+resp.Applications[0].ID, "client-1", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
