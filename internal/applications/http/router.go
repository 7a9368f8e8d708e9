package http

import (
	"github.com/gin-gonic/gin"

	authdomain "github.com/jeevanjiji/websphere-final/internal/auth/domain"
	authmw "github.com/jeevanjiji/websphere-final/internal/auth/middleware"
)

// Register attaches application routes to the given router group.
// Submission and withdrawal are freelancer actions; responding and
// listing a project's applications belong to the client side.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", authmw.RequireRole(authdomain.RoleFreelancer), h.submit)
	rg.GET("/my", authmw.RequireRole(authdomain.RoleFreelancer), h.listMine)
	rg.GET("/project/:projectId", authmw.RequireRole(authdomain.RoleClient, authdomain.RoleAdmin), h.listForProject)
	rg.PUT("/:id/status", authmw.RequireRole(authdomain.RoleClient), h.respond)
	rg.DELETE("/:id", authmw.RequireRole(authdomain.RoleFreelancer), h.withdraw)
}
