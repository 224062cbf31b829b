package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/config"
	"github.com/mydayiart/dayart/controllers"
	"github.com/mydayiart/dayart/middleware"
	"github.com/mydayiart/dayart/utils"
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
	r.Use(utils.RequestLogger())
	r.Use(utils.PanicRecovery())

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

	// Generated images are plain static files.
	r.Static("/images", cfg.ImagesDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	dayController := controllers.NewDayController(db)
	voteController := controllers.NewVoteController(db)
	authController := controllers.NewAuthController(db)
	passwordController := controllers.NewPasswordController(db)

	// Day resolution and engagement counters are public.
	r.GET("/today", dayController.Today)
	r.GET("/finished", dayController.Finished)
	r.POST("/finished", dayController.Finished)
	r.GET("/instagram", dayController.Instagram)
	r.POST("/instagram", dayController.Instagram)

	// Seeding is restricted to administrators.
	r.POST("/api/add_days", middleware.AuthRequired(), middleware.AdminRequired(), dayController.AddDays)

	rateLimited := r.Group("")
	rateLimited.Use(middleware.RateLimitMiddleware())
	rateLimited.POST("/register", authController.Register)
	rateLimited.POST("/login", authController.Login)
	rateLimited.POST("/password/reset/request", passwordController.RequestReset)
	rateLimited.POST("/password/reset/:token", passwordController.ResetPassword)

	userGroup := r.Group("/user")
	userGroup.Use(middleware.AuthRequired())
	userGroup.DELETE("/delete", authController.DeleteUser)
	userGroup.POST("/vote", voteController.Vote)
	userGroup.GET("/has_voted", voteController.HasVoted)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
