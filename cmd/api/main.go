package main

import (
	"context"
	"log"

	"github.com/lnbits/chat/config"
	"github.com/lnbits/chat/internal/database"
	"github.com/lnbits/chat/internal/handler"
	"github.com/lnbits/chat/internal/invoices"
	"github.com/lnbits/chat/internal/redis"
	"github.com/lnbits/chat/internal/repository"
	"github.com/lnbits/chat/internal/server"
	"github.com/lnbits/chat/internal/service"
	"github.com/lnbits/chat/internal/websocket"
	"github.com/lnbits/chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(loggerMode(cfg.AppMode))
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := redis.HealthCheck(ctx, redisClient); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	categories := repository.NewCategoryRepository(db)
	chats := repository.NewChatRepository(db)
	payments := repository.NewPaymentRepository(db)

	provider := invoices.NewLnbitsProvider(cfg.LnbitsURL, cfg.LnbitsAPIKey)
	publisher := redis.NewPublisher(redisClient)

	chatService := service.NewChatService(
		categories, chats, payments,
		provider, provider, publisher,
		cfg.BaseURL, l,
	)
	categoryService := service.NewCategoryService(categories, l)

	hub := websocket.NewHub()
	bridge := websocket.NewBridge(redis.NewSubscriber(redisClient), hub)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			l.Errorf("websocket bridge stopped: %v", err)
		}
	}()
	go chatService.RunCleanup(ctx)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Category: handler.NewCategoryHandler(categoryService),
		Chat:     handler.NewChatHandler(chatService, categoryService),
		Payment:  handler.NewPaymentHandler(chatService),
		WS:       websocket.NewHandler(hub),
	}, db)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func loggerMode(appMode string) string {
	if appMode == server.ReleaseMode {
		return logger.ProductionMode
	}
	return logger.DevelopmentMode
}
