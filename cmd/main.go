package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/handler"
	"troublebot-backend/internal/llm"
	"troublebot-backend/internal/mcpserver"
	"troublebot-backend/internal/middleware"
	"troublebot-backend/internal/service"
	"troublebot-backend/internal/storage"
	"troublebot-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env 可选，不存在时直接使用进程环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}
	logger.Infof("Using model provider %q", cfg.Model.Provider)

	store := storage.New(cfg.Storage)
	defer store.Close()

	// 初始化服务
	chatService, err := service.NewChatService(ctx, chatModel, cfg.Agent)
	if err != nil {
		logger.Fatalf("Failed to init chat service: %v", err)
	}
	transcriptService, err := service.NewTranscriptService(ctx, chatModel, store, cfg.Agent)
	if err != nil {
		logger.Fatalf("Failed to init transcript service: %v", err)
	}

	retention := service.NewRetentionJob(store, cfg.Retention)
	if err := retention.Start(); err != nil {
		logger.Fatalf("Failed to schedule transcript retention: %v", err)
	}
	defer retention.Stop()

	router := setupRouter(cfg,
		handler.NewChatHandler(chatService),
		handler.NewTranscriptHandler(transcriptService),
	)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, transcriptHandler *handler.TranscriptHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimit))

	handler.RegisterRoutes(router, chatHandler, transcriptHandler, cfg.Archive)

	if cfg.MCP.Enabled {
		mcpHTTP := mcpserver.NewHTTPHandler(mcpserver.New(), cfg.MCP.Path)
		router.Any(cfg.MCP.Path, gin.WrapH(mcpHTTP))
		logger.Infof("MCP tools served at %s", cfg.MCP.Path)
	}

	return router
}
