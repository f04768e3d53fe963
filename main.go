package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/ratelimit"
	"docchat/internal/redis"
	"docchat/internal/registry"
	"docchat/internal/service/ai"
	"docchat/internal/service/chat"
	"docchat/internal/service/extract"
	"docchat/internal/service/ingest"
	"docchat/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("DOCCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	log.Printf("dbType: %s", cfg.Database)
	db, err := storage.Open(cfg.Database, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var limiter ratelimit.Limiter
	window := time.Duration(cfg.Limits.RateLimitWindowMs) * time.Millisecond
	switch cfg.Limits.RateLimitBackend {
	case "redis":
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.Limits.RateLimitRequests, window)
	default:
		limiter = ratelimit.NewMemory(cfg.Limits.RateLimitRequests, window)
	}

	ctx := context.Background()
	chatModel, err := ai.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		if !errors.Is(err, ai.ErrMissingCredential) {
			log.Fatalf("init chat model: %v", err)
		}
		log.Printf("no API key for provider %s, chat requests will fail until one is configured", cfg.LLM.Provider)
	}
	gateway := ai.NewGateway(chatModel, ai.GatewayConfig{
		MaxTokensPerRequest: cfg.Limits.MaxTokensPerRequest,
		MaxAttempts:         cfg.LLM.MaxAttempts,
		RetryBase:           time.Duration(cfg.LLM.RetryBaseMs) * time.Millisecond,
		Timeout:             time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	extractor, err := extract.New(ctx)
	if err != nil {
		log.Fatalf("init extractor: %v", err)
	}
	uploads := storage.NewUploadStore(db, cfg.BasicConfig.UploadDir)
	files := registry.New(uploads)
	restored, err := uploads.Load(ctx)
	if err != nil {
		log.Fatalf("load stored uploads: %v", err)
	}
	log.Printf("restored %d stored uploads", files.Restore(restored))

	handlers := api.NewHandler(
		ingest.NewService(extractor, uploads, files),
		files,
		chat.NewService(limiter, files, gateway),
		api.Limits{
			MaxFileSize:       cfg.BasicConfig.MaxFileSize,
			MaxFilesPerUpload: cfg.BasicConfig.MaxFilesPerUpload,
		},
	)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.BasicConfig.MaxFileSize
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.BasicConfig.ServerAddress,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.LLM.TimeoutSeconds*cfg.LLM.MaxAttempts)*time.Second + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
}
