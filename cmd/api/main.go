package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeevanjiji/websphere-final/config"
	"github.com/jeevanjiji/websphere-final/internal/annotate"
	"github.com/jeevanjiji/websphere-final/internal/auth"
	"github.com/jeevanjiji/websphere-final/internal/award"
	cronjob "github.com/jeevanjiji/websphere-final/internal/award/cron"
	"github.com/jeevanjiji/websphere-final/internal/bootstrap"
	"github.com/jeevanjiji/websphere-final/internal/locker"
	"github.com/jeevanjiji/websphere-final/internal/marketplace/store"
	"github.com/jeevanjiji/websphere-final/internal/notifications"
	"github.com/jeevanjiji/websphere-final/internal/realtime"
	"github.com/jeevanjiji/websphere-final/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations("file://migrations", cfg.Database.DSN()); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	sqlDB, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer sqlDB.Close()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN()})
	if err != nil {
		log.Fatalf("pgx pool: %v", err)
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	projectRepo := store.NewProjectRepository(rdb)
	applicationRepo := store.NewApplicationRepository(rdb)
	chatRepo := store.NewChatRepository(rdb)
	workspaceRepo := store.NewWorkspaceRepository(rdb)
	repairQueue := store.NewRepairQueue(rdb)

	hub := realtime.NewHub(chatRepo)
	bus := realtime.NewRedisBus(rdb)
	go func() {
		if err := bus.Run(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("event bus stopped: %v", err)
		}
	}()

	notifier := notifications.NewClient(cfg.External.NotificationServiceURL)
	annotator := annotate.NewClient(cfg.External.AnnotatorServiceURL)
	locks := locker.NewKeyed()

	coordinator := award.NewCoordinator(
		projectRepo, applicationRepo, chatRepo, workspaceRepo, repairQueue,
		bus, notifier, locks,
	)
	cronjob.NewScheduler(coordinator).Start()

	deps := bootstrap.RouterDeps{
		ServiceName: "marketplace-api",
		Version:     cfg.App.Version,
		DB:          pool,
		SQLDB:       sqlDB,
		Redis:       rdb,
		Hub:         hub,
		Bus:         bus,
		Notifier:    notifier,
		Annotate:    annotator,
		Coordinator: coordinator,
		Locks:       locks,
	}

	if !cfg.Firebase.Disabled {
		authClient, err := auth.InitializeFirebase(&cfg.Firebase)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
		deps.AuthClient = authClient
	} else {
		log.Println("WARNING: auth disabled, using dev header identities")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
