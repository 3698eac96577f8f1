package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zedit/api/internal/account"
	"zedit/api/internal/ai"
	"zedit/api/internal/app"
	"zedit/api/internal/avatar"
	"zedit/api/internal/config"
	"zedit/api/internal/export"
	"zedit/api/internal/logging"
	"zedit/api/internal/search"
	"zedit/api/internal/session"
	"zedit/api/internal/store"
)

const authCacheTTL = time.Minute

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.IsDevelopment())
	defer logger.Sync()

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	dataStore := store.NewPostgresStore(db)
	accounts := account.NewService(dataStore)

	opts := app.Options{
		Exporter: export.NewService(logger),
		Pinger:   db,
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err := session.NewRedisCache(cfg.RedisURL, authCacheTTL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer cache.Close()
		opts.AuthCache = cache
		logger.Info("auth lookup cache enabled", zap.String("backend", "redis"))
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		avatars, err := avatar.New(ctx, avatar.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logger.Fatal("minio connection failed", zap.Error(err))
		}
		opts.Avatars = avatars
		logger.Info("avatar storage enabled", zap.String("bucket", cfg.MinioBucket))
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		logger.Info("meilisearch enabled", zap.String("url", cfg.MeiliURL))
	}
	opts.Search = search.NewService(meiliClient, search.NewPgSearch(db), logger)

	if strings.TrimSpace(cfg.AIAPIKey) != "" {
		aiService, err := ai.NewService(ai.Config{
			APIKey:  cfg.AIAPIKey,
			BaseURL: cfg.AIBaseURL,
			Model:   cfg.AIModel,
		})
		if err != nil {
			logger.Fatal("ai client init failed", zap.Error(err))
		}
		opts.AI = aiService
		logger.Info("ai transforms enabled", zap.String("model", cfg.AIModel))
	}

	service := app.NewService(dataStore, accounts, []byte(cfg.JWTSecret), cfg.TokenTTL, logger, opts)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.IsDevelopment(), logger)

	if meiliClient != nil {
		if err := service.ReindexSearch(ctx); err != nil {
			logger.Warn("search index backfill failed", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("zedit api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
