package bootstrap

import (
	"database/sql"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jeevanjiji/websphere-final/internal/annotate"
	httpapi "github.com/jeevanjiji/websphere-final/internal/api/http"
	apimw "github.com/jeevanjiji/websphere-final/internal/api/http/middleware"
	appshttp "github.com/jeevanjiji/websphere-final/internal/applications/http"
	appssvc "github.com/jeevanjiji/websphere-final/internal/applications/service"
	"github.com/jeevanjiji/websphere-final/internal/auth"
	authhttp "github.com/jeevanjiji/websphere-final/internal/auth/http"
	authmw "github.com/jeevanjiji/websphere-final/internal/auth/middleware"
	authrepo "github.com/jeevanjiji/websphere-final/internal/auth/repository"
	authsvc "github.com/jeevanjiji/websphere-final/internal/auth/service"
	"github.com/jeevanjiji/websphere-final/internal/award"
	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	neghttp "github.com/jeevanjiji/websphere-final/internal/negotiation/http"
	negsvc "github.com/jeevanjiji/websphere-final/internal/negotiation/service"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
	"github.com/jeevanjiji/websphere-final/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	DB    *pgxpool.Pool
	SQLDB *sql.DB
	Redis *redis.Client

	// AuthClient is nil when Firebase auth is disabled; the dev
	// header-based middleware takes its place.
	AuthClient *fbauth.Client

	Hub      *realtime.Hub
	Bus      realtime.Publisher
	Notifier notifications.Dispatcher
	Annotate annotate.Annotator

	Coordinator *award.Coordinator
	Locks       *locker.Keyed
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestIDMiddleware())
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	// Websocket upgrade authenticates its own token, outside the REST
	// middleware chain.
	var verifier realtime.TokenVerifier
	if dep.AuthClient != nil {
		verifier = auth.NewFirebaseVerifier(dep.AuthClient)
	} else {
		verifier = auth.DevVerifier{}
	}
	realtime.NewHandler(dep.Hub, verifier).RegisterRoutes(r)

	projectRepo := store.NewProjectRepository(dep.Redis)
	applicationRepo := store.NewApplicationRepository(dep.Redis)
	chatRepo := store.NewChatRepository(dep.Redis)

	api := r.Group("/api/v1")
	if dep.AuthClient != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.AuthClient))
	} else {
		api.Use(auth.OptionalUser())
	}

	authHandler := authhttp.New(authsvc.NewAuthService(authrepo.NewUserRepository(dep.SQLDB)))
	authHandler.Register(api.Group("/auth"))

	// Marketplace routes additionally need the users row and role.
	mp := api.Group("")
	if dep.DB != nil {
		mp.Use(auth.WithUser(users.NewRepo(dep.DB)))
	}

	applicationService := appssvc.New(projectRepo, applicationRepo, dep.Coordinator, dep.Bus, dep.Notifier)
	appshttp.NewHandler(applicationService).Register(mp.Group("/applications"))

	negotiationService := negsvc.New(projectRepo, applicationRepo, chatRepo,
		dep.Bus, dep.Notifier, dep.Annotate, dep.Locks)
	negotiationHandler := neghttp.NewHandler(negotiationService)
	negotiationHandler.Register(mp.Group("/chats"))
	negotiationHandler.RegisterMessages(mp.Group("/messages"))

	return r
}
