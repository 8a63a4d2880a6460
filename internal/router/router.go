package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esteemed/backend/internal/handler"
	"esteemed/backend/internal/logger"
	"esteemed/backend/internal/middleware"
	"esteemed/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	habitHandler *handler.HabitHandler,
	engagementHandler *handler.EngagementHandler,
	corsOrigins []string,
	log *logger.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(log), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	api.POST("/feedback", middleware.OptionalAuth(authService), engagementHandler.SubmitFeedback)
	api.POST("/track-visit", engagementHandler.TrackVisit)

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))

	authed.GET("/user", habitHandler.GetProfile)
	authed.POST("/user/usage", habitHandler.RecordUsage)
	authed.POST("/user/panic", habitHandler.RecordPanic)
	authed.POST("/user/wipe", habitHandler.WipeAll)

	authed.POST("/streak/start", habitHandler.StartStreak)
	authed.POST("/streak/reset", habitHandler.ResetStreak)

	authed.POST("/urge", habitHandler.LogUrge)
	authed.GET("/urge", habitHandler.ListUrges)
	authed.GET("/relapse", habitHandler.ListRelapses)

	authed.GET("/stats", habitHandler.GetStats)

	authed.POST("/early-access", engagementHandler.SignUpEarlyAccess)

	return engine
}
