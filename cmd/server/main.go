package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"platerate/internal/config"
	"platerate/internal/db"
	"platerate/internal/identity"
	"platerate/internal/lookup"
	"platerate/internal/middleware"
	"platerate/internal/router"
	"platerate/internal/services"
	"platerate/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Initialize Database
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db.SeedModerators(database, cfg.ModeratorUIDs)

	client := store.New(database, logger.With("component", "store"),
		store.WithTimeout(cfg.StoreTimeout),
		store.WithAttempts(cfg.StoreAttempts),
	)

	vehicles, err := lookup.NewHTTPLookup(cfg.LookupBaseURL, cfg.LookupCacheTTL, logger.With("component", "lookup"))
	if err != nil {
		log.Fatalf("Failed to create vehicle lookup: %v", err)
	}

	if cfg.FirebaseProjectID == "" {
		log.Fatal("FIREBASE_PROJECT_ID is required")
	}
	verifier, err := identity.NewFirebaseVerifier(cfg.FirebaseJWKSURL, cfg.FirebaseProjectID, logger.With("component", "identity"))
	if err != nil {
		log.Fatalf("Failed to load identity keys: %v", err)
	}
	defer verifier.Close()

	svc := services.New(client, vehicles, services.Options{
		CarRefreshAfter:    cfg.CarRefreshAfter,
		ExcludeOwnReceived: cfg.ExcludeOwnReceived,
		ModeratorUIDs:      cfg.ModeratorUIDs,
	}, logger)

	// 后台任务随 ctx 一起退出
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go svc.Notifier.Run(ctx)

	limiter := middleware.PerMinute(cfg.ReviewRatePerMinute)
	go limiter.Cleanup(ctx, 10*time.Minute)

	r := router.New(router.Deps{
		Config:   cfg,
		Services: svc,
		Verifier: verifier,
		Limiter:  limiter,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("PlateRate server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
