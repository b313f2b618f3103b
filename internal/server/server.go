// Package server assembles the gin engine, routes and lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lnbits/chat/config"
	"github.com/lnbits/chat/internal/database"
	"github.com/lnbits/chat/internal/handler"
	"github.com/lnbits/chat/internal/middleware"
	"github.com/lnbits/chat/internal/websocket"
	"github.com/lnbits/chat/pkg/logger"
	"github.com/lnbits/chat/pkg/model"
)

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

type Handlers struct {
	Category *handler.CategoryHandler
	Chat     *handler.ChatHandler
	Payment  *handler.PaymentHandler
	WS       *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) SetupRoutes(handlers *Handlers, db *gorm.DB) {
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.CORS())
	s.engine.Use(middleware.Logging(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, model.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	limiter := middleware.NewIPRateLimiter(5, 10)
	requireUser := middleware.RequireUser(s.config.JWTSecret)
	optionalUser := middleware.OptionalUser(s.config.JWTSecret)

	public := s.engine.Group("/chat/api/v1/public")
	{
		public.GET("/categories/:categories_id", handlers.Category.GetPublic)
		public.POST("/chats/:categories_id", middleware.RateLimit(limiter), handlers.Chat.CreatePublic)
		public.GET("/chats/:categories_id/:chat_id", handlers.Chat.GetPublic)
		public.GET("/chats/:categories_id/:chat_id/lnurl", handlers.Chat.Lnurl)
		public.POST("/chats/:categories_id/:chat_id/messages", middleware.RateLimit(limiter), optionalUser, handlers.Chat.SendPublicMessage)
		public.POST("/chats/:categories_id/:chat_id/tip", middleware.RateLimit(limiter), handlers.Chat.SendTip)
		public.POST("/chats/:categories_id/:chat_id/claim", requireUser, handlers.Chat.ToggleClaim)
		public.POST("/chats/:categories_id/:chat_id/resolve", handlers.Chat.ResolvePublic)
	}

	admin := s.engine.Group("/chat/api/v1", requireUser)
	{
		admin.POST("/categories", handlers.Category.Create)
		admin.PUT("/categories/:categories_id", handlers.Category.Update)
		admin.DELETE("/categories/:categories_id", handlers.Category.Delete)

		admin.GET("/chats", handlers.Chat.List)
		admin.GET("/chats/:chat_id", handlers.Chat.Get)
		admin.POST("/chats/:chat_id/messages", handlers.Chat.SendAdminMessage)
		admin.POST("/chats/:chat_id/resolve", handlers.Chat.Resolve)
		admin.POST("/chats/:chat_id/seen", handlers.Chat.MarkSeen)
	}

	// Settlement ingress from the payment processor.
	s.engine.POST("/chat/api/v1/payments/webhook", handlers.Payment.Webhook)

	// Live subscriptions. Topics are capability tokens, no auth.
	s.engine.GET("/api/v1/ws/:topic", handlers.WS.Connect)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
