package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/controllers"
	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	articleController := controllers.NewArticleController(db)
	categoryController := controllers.NewCategoryController(db)
	engagementController := controllers.NewEngagementController(db)
	analyticsController := controllers.NewAnalyticsController(db)
	uploadController := controllers.NewUploadController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/github/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public reads. OptionalAuth lets authors see their own drafts.
	api.GET("/articles", middleware.OptionalAuth(), articleController.ListArticles)
	api.GET("/articles/:id", middleware.OptionalAuth(), articleController.GetArticle)
	api.GET("/categories", categoryController.ListCategories)

	// Engagement writes are anonymous but rate limited; dedup happens in the
	// analytics service, not here.
	engage := api.Group("/articles/:id")
	engage.Use(middleware.RateLimitMiddleware())
	engage.POST("/view", engagementController.RecordView)
	engage.POST("/like", engagementController.ToggleLike)

	analyticsGroup := api.Group("/analytics")
	analyticsGroup.Use(middleware.AuthRequired(), middleware.AdminRequired())
	analyticsGroup.GET("/dashboard", analyticsController.Dashboard)
	analyticsGroup.GET("/top", analyticsController.TopArticles)
	analyticsGroup.GET("/articles/:id", analyticsController.ArticleAnalytics)
	analyticsGroup.GET("/engagement", analyticsController.EngagementSummary)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/articles", articleController.CreateArticle)
	protected.PUT("/articles/:id", articleController.UpdateArticle)
	protected.POST("/articles/:id/publish", articleController.PublishArticle)
	protected.DELETE("/articles/:id", articleController.DeleteArticle)
	protected.POST("/upload", uploadController.Upload)

	adminGroup := api.Group("")
	adminGroup.Use(middleware.AuthRequired(), middleware.AdminRequired())
	adminGroup.POST("/categories", categoryController.CreateCategory)
	adminGroup.PUT("/categories/:id", categoryController.UpdateCategory)
	adminGroup.DELETE("/categories/:id", categoryController.DeleteCategory)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
