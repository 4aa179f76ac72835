package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"rescueops/api/internal/app"
	"rescueops/api/internal/authpw"
	"rescueops/api/internal/config"
	"rescueops/api/internal/email"
	"rescueops/api/internal/reminders"
	"rescueops/api/internal/search"
	"rescueops/api/internal/session"
	"rescueops/api/internal/storage"
	"rescueops/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	service := app.New(cfg, dataStore)

	service.SetAuthPasswordService(authpw.NewService(dataStore))

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	service.SetSearchService(search.NewService(meiliClient, pgfts))

	emailService := email.NewService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		EnableTLS: true,
	})
	service.SetEmailService(emailService)

	objectStore, err := storage.New(ctx, storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Printf("WARNING: object storage unavailable, attachments disabled: %v", err)
	} else {
		service.SetObjectStorage(objectStore)
	}

	// A single Redis client backs refresh sessions and the scheduled
	// notification set. Both fall back to Postgres/off when unconfigured.
	var dispatchCron *cron.Cron
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()

		log.Printf("Using Redis for refresh token storage")
		service.SetRefreshStore(session.NewRedisStoreWithClient(redisClient))

		scheduler := reminders.NewRedisScheduler(redisClient)
		service.SetScheduler(scheduler)

		dispatcher := reminders.NewDispatcher(scheduler, service.DispatcherMemberSource(), emailService, cfg.AppBaseURL)
		dispatchCron, err = dispatcher.Start(cfg.DispatchCron)
		if err != nil {
			log.Fatalf("dispatcher cron failed: %v", err)
		}
	} else {
		log.Printf("Using PostgreSQL for refresh token storage; reminder scheduling disabled")
	}
	if dispatchCron != nil {
		defer dispatchCron.Stop()
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("RescueOps API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
