package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"scholarhub.app/scholarhub/internal/config"
	"scholarhub.app/scholarhub/internal/middleware"
	"scholarhub.app/scholarhub/pkg/storage"

	applicationHttp "scholarhub.app/scholarhub/internal/modules/application/delivery/http"
	applicationRepo "scholarhub.app/scholarhub/internal/modules/application/repository"
	applicationService "scholarhub.app/scholarhub/internal/modules/application/service"

	conversationHttp "scholarhub.app/scholarhub/internal/modules/conversation/delivery/http"
	conversationRepo "scholarhub.app/scholarhub/internal/modules/conversation/repository"
	conversationService "scholarhub.app/scholarhub/internal/modules/conversation/service"

	notifHttp "scholarhub.app/scholarhub/internal/modules/notification/delivery/http"
	notifRepo "scholarhub.app/scholarhub/internal/modules/notification/repository"
	notifService "scholarhub.app/scholarhub/internal/modules/notification/service"

	scholarshipHttp "scholarhub.app/scholarhub/internal/modules/scholarship/delivery/http"
	scholarshipRepo "scholarhub.app/scholarhub/internal/modules/scholarship/repository"
	scholarshipService "scholarhub.app/scholarhub/internal/modules/scholarship/service"

	searchService "scholarhub.app/scholarhub/internal/modules/search/service"

	statHttp "scholarhub.app/scholarhub/internal/modules/stat/delivery/http"
	statService "scholarhub.app/scholarhub/internal/modules/stat/service"

	userHttp "scholarhub.app/scholarhub/internal/modules/user/delivery/http"
	userRepo "scholarhub.app/scholarhub/internal/modules/user/repository"
	userService "scholarhub.app/scholarhub/internal/modules/user/service"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	users := userRepo.NewUserRepository(db)

	var imageStorage storage.ImageStorage
	if imgStorage, err := storage.NewCloudinaryStorage(); err != nil {
		log.Printf("image storage disabled: %v", err)
	} else {
		imageStorage = imgStorage
	}

	var meiliClient meilisearch.ServiceManager
	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		meiliClient = meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	}
	searchSvc := searchService.NewSearchService(meiliClient)

	authSvc := userService.NewAuthService(users, redisClient, cfg)
	authHandler := userHttp.NewAuthHandler(authSvc)

	scholarships := scholarshipRepo.NewScholarshipRepository(db)
	scholarshipSvc := scholarshipService.NewService(scholarships, searchSvc, imageStorage)
	scholarshipHandler := scholarshipHttp.NewScholarshipHandler(scholarshipSvc)

	notifications := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notifications, redisClient)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc, redisClient)

	applications := applicationRepo.NewApplicationRepository(db)
	applicationSvc := applicationService.NewApplicationService(applications, scholarships, notificationSvc)
	applicationHandler := applicationHttp.NewApplicationHandler(applicationSvc)

	var bot conversationService.BotResponder
	if cfg.BotAPIURL != "" {
		bot = conversationService.NewHTTPBotResponder(cfg.BotAPIURL, cfg.BotAPITimeout)
	}
	conversations := conversationRepo.NewConversationRepository(db)
	conversationSvc := conversationService.NewConversationService(conversations, bot, redisClient, cfg.ChatRateLimit)
	conversationHandler := conversationHttp.NewConversationHandler(conversationSvc)

	statSvc := statService.NewStatService(users, scholarships, applications, conversations, redisClient)
	statHandler := statHttp.NewStatHandler(statSvc)

	// Deadline sweeper runs for the lifetime of the process
	sweeper := applicationService.NewDeadlineSweeper(applications, notificationSvc, redisClient, cfg.DeadlineSweepInterval)
	go sweeper.Start(context.Background())

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(users)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/guest", authHandler.Guest)
	}

	// Routes open to users and guests
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/scholarships", scholarshipHandler.List)
		protected.GET("/scholarships/search", scholarshipHandler.Search)
		protected.GET("/scholarships/:id", scholarshipHandler.GetByID)

		protected.POST("/chat/messages", conversationHandler.UserMessage)

		// Registered users only
		userOnly := protected.Group("")
		userOnly.Use(authMiddleware.RequireUser())
		{
			userOnly.POST("/applications", applicationHandler.Create)
			userOnly.GET("/applications", applicationHandler.ListMine)

			userOnly.GET("/notifications", notificationHandler.GetNotifications)
			userOnly.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			userOnly.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
			userOnly.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		}

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/stats", statHandler.Dashboard)

			adminGroup.POST("/scholarships", scholarshipHandler.Create)
			adminGroup.PUT("/scholarships/:id", scholarshipHandler.Update)
			adminGroup.DELETE("/scholarships/:id", scholarshipHandler.Delete)
			adminGroup.POST("/scholarships/import", scholarshipHandler.Import)
			adminGroup.POST("/scholarships/:id/logo", scholarshipHandler.UploadLogo)

			adminGroup.PUT("/applications/:id/status", applicationHandler.UpdateStatus)

			adminGroup.GET("/conversations", conversationHandler.List)
			adminGroup.GET("/conversations/:id", conversationHandler.Get)
			adminGroup.POST("/conversations/:id/takeover", conversationHandler.TakeOver)
			adminGroup.POST("/conversations/:id/release", conversationHandler.Release)
			adminGroup.POST("/conversations/:id/messages", conversationHandler.AdminMessage)
		}
	}

	// Realtime channel, outside /api to match the ws URL scheme
	realtime := router.Group("/realtime")
	realtime.Use(authMiddleware.RequireAuth())
	{
		realtime.GET("/ws/updates/:topic", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
