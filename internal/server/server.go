package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/volunteergoals/internal/config"
	"anoa.com/volunteergoals/internal/middleware"
	"anoa.com/volunteergoals/internal/scheduler"
	"anoa.com/volunteergoals/pkg/ratelimiter"

	activityHttp "anoa.com/volunteergoals/internal/modules/activity/delivery/http"
	activityRepo "anoa.com/volunteergoals/internal/modules/activity/repository"
	activityService "anoa.com/volunteergoals/internal/modules/activity/service"

	adminHttp "anoa.com/volunteergoals/internal/modules/admin/delivery/http"
	adminService "anoa.com/volunteergoals/internal/modules/admin/service"

	analyticsHttp "anoa.com/volunteergoals/internal/modules/analytics/delivery/http"
	analyticsService "anoa.com/volunteergoals/internal/modules/analytics/service"

	authHttp "anoa.com/volunteergoals/internal/modules/auth/delivery/http"
	authService "anoa.com/volunteergoals/internal/modules/auth/service"

	goalHttp "anoa.com/volunteergoals/internal/modules/goal/delivery/http"
	goalRepo "anoa.com/volunteergoals/internal/modules/goal/repository"
	goalService "anoa.com/volunteergoals/internal/modules/goal/service"

	templateHttp "anoa.com/volunteergoals/internal/modules/goaltemplate/delivery/http"
	templateRepo "anoa.com/volunteergoals/internal/modules/goaltemplate/repository"
	templateService "anoa.com/volunteergoals/internal/modules/goaltemplate/service"

	lifecycleService "anoa.com/volunteergoals/internal/modules/lifecycle/service"

	historyHttp "anoa.com/volunteergoals/internal/modules/progresshistory/delivery/http"
	historyRepo "anoa.com/volunteergoals/internal/modules/progresshistory/repository"
	historyService "anoa.com/volunteergoals/internal/modules/progresshistory/service"

	searchService "anoa.com/volunteergoals/internal/modules/search/service"

	settingHttp "anoa.com/volunteergoals/internal/modules/setting/delivery/http"
	settingRepo "anoa.com/volunteergoals/internal/modules/setting/repository"
	settingService "anoa.com/volunteergoals/internal/modules/setting/service"

	userHttp "anoa.com/volunteergoals/internal/modules/user/delivery/http"
	userRepo "anoa.com/volunteergoals/internal/modules/user/repository"
	userService "anoa.com/volunteergoals/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
}

// NewServer wires every module. redisClient may be nil; search is disabled
// when no Meilisearch host is configured.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var meiliSvc searchService.MeiliSearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewMeiliSearchService(meiliClient)
	} else {
		log.Println("MEILISEARCH_HOST not set, goal search disabled")
	}

	userRepository := userRepo.NewUserRepository(db)
	goalRepository := goalRepo.NewRepository(db)
	historyRepository := historyRepo.NewRepository(db)
	activityRepository := activityRepo.NewRepository(db)
	settingRepository := settingRepo.NewRepository(db)
	templateRepository := templateRepo.NewRepository(db)

	activitySvc := activityService.NewService(activityRepository, redisClient)
	activityHandler := activityHttp.NewActivityHandler(activitySvc)
	streamHandler := activityHttp.NewStreamHandler(redisClient, strings.Split(cfg.AllowedOrigins, ","))

	userSvc := userService.NewUserService(userRepository, goalRepository, activitySvc)
	userHandler := userHttp.NewUserHandler(userSvc)

	authSvc := authService.NewService(userRepository, userSvc, ratelimiter.New(redisClient, "ratelimit"), activitySvc, authService.Options{
		Secret:        cfg.JWTSecret,
		TokenTTL:      cfg.JWTTTL,
		LoginAttempts: cfg.LoginRateLimitAttempts,
		LoginWindow:   cfg.LoginRateLimitWindow,
	})
	authHandler := authHttp.NewAuthHandler(authSvc)

	goalSvc := goalService.NewService(goalRepository, userRepository, userSvc, activitySvc, meiliSvc)
	goalHandler := goalHttp.NewGoalHandler(goalSvc)

	historySvc := historyService.NewService(historyRepository, goalRepository, activitySvc)
	historyHandler := historyHttp.NewProgressHistoryHandler(historySvc)

	settingSvc := settingService.NewService(settingRepository, activitySvc)
	settingHandler := settingHttp.NewSettingHandler(settingSvc)

	templateSvc := templateService.NewService(templateRepository, goalSvc, activitySvc)
	templateHandler := templateHttp.NewGoalTemplateHandler(templateSvc)

	analyticsSvc := analyticsService.NewService(goalRepository, historyRepository, activityRepository, userRepository)
	analyticsHandler := analyticsHttp.NewAnalyticsHandler(analyticsSvc)

	var indexer lifecycleService.GoalIndexer
	if meiliSvc != nil {
		indexer = meiliSvc
	}
	lifecycleSvc := lifecycleService.NewService(goalRepository, historyRepository, userSvc, activitySvc, indexer, redisClient)

	adminSvc := adminService.NewAdminService(userRepository, goalRepository, historyRepository, activitySvc, lifecycleSvc, userSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	jobs := scheduler.NewScheduler()
	if err := jobs.Register(scheduler.NewJob(lifecycleService.JobName, cfg.WeeklyProcessorSchedule, func(ctx context.Context) error {
		_, err := lifecycleSvc.ProcessWeek(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("failed to register weekly processing: %w", err)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret)

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.PUT("/auth/password", authHandler.ChangePassword)

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users", userHandler.CreateUser)
			adminGroup.GET("/users", userHandler.GetUsers)
			adminGroup.GET("/users/:id", userHandler.GetUser)
			adminGroup.PUT("/users/:id", userHandler.UpdateUser)
			adminGroup.DELETE("/users/:id", userHandler.DeleteUser)
			adminGroup.GET("/dashboard", adminHandler.GetDashboard)
			adminGroup.GET("/activity-logs", adminHandler.GetActivityLogs)
			adminGroup.POST("/weekly-processing/run", adminHandler.RunWeeklyProcessing)
			adminGroup.POST("/overdue-sweep", adminHandler.RunOverdueSweep)
			adminGroup.POST("/rollups/recompute", adminHandler.RecomputeRollups)
		}

		// User routes
		protected.GET("/users/me", userHandler.GetMe)
		protected.GET("/users/:id/stats", userHandler.GetStats)

		// Goal routes
		protected.GET("/goals", goalHandler.GetGoals)
		protected.POST("/goals", goalHandler.CreateGoal)
		protected.GET("/goals/search", goalHandler.SearchGoals)
		protected.PATCH("/goals/bulk", goalHandler.BulkUpdate)
		protected.GET("/goals/:id", goalHandler.GetGoal)
		protected.PUT("/goals/:id", goalHandler.UpdateGoal)
		protected.DELETE("/goals/:id", goalHandler.DeleteGoal)
		protected.PATCH("/goals/:id/progress", goalHandler.UpdateProgress)
		protected.PATCH("/goals/:id/status", goalHandler.UpdateStatus)

		// Progress history routes
		protected.GET("/progress-history", historyHandler.GetHistories)
		protected.POST("/progress-history", historyHandler.CreateHistory)
		protected.GET("/progress-history/summary", historyHandler.GetSummary)
		protected.GET("/progress-history/:id", historyHandler.GetHistory)
		protected.DELETE("/progress-history/:id", historyHandler.DeleteHistory)

		// Setting routes
		protected.GET("/settings", settingHandler.GetSettings)
		protected.POST("/settings", settingHandler.CreateSetting)
		protected.GET("/settings/resolve/:key", settingHandler.ResolveSetting)
		protected.GET("/settings/:id", settingHandler.GetSetting)
		protected.PUT("/settings/:id", settingHandler.UpdateSetting)
		protected.DELETE("/settings/:id", settingHandler.DeleteSetting)

		// Analytics routes
		protected.GET("/analytics/overview", analyticsHandler.GetOverview)
		protected.GET("/analytics/volunteers/:id", analyticsHandler.GetVolunteerPerformance)
		protected.GET("/analytics/trends", analyticsHandler.GetTrends)
		protected.GET("/analytics/productive-day", analyticsHandler.GetProductiveDay)
		protected.GET("/analytics/activity-by-day", analyticsHandler.GetActivityByDay)

		// Goal template routes
		protected.GET("/goal-templates", templateHandler.GetTemplates)
		protected.POST("/goal-templates", templateHandler.CreateTemplate)
		protected.GET("/goal-templates/:id", templateHandler.GetTemplate)
		protected.PUT("/goal-templates/:id", templateHandler.UpdateTemplate)
		protected.DELETE("/goal-templates/:id", templateHandler.DeleteTemplate)
		protected.POST("/goal-templates/:id/use", templateHandler.UseTemplate)

		protected.GET("/activity-logs", activityHandler.GetMyActivity)
		protected.GET("/activity-logs/stream", streamHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   jobs,
	}, nil
}

// Run starts the scheduler and blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	s.scheduler.Start()
	defer s.scheduler.Stop()
	return s.engine.Run(addr)
}

func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
