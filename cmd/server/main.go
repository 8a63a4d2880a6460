package main

import (
	"log"
	"time"

	"esteemed/backend/internal/config"
	"esteemed/backend/internal/db"
	"esteemed/backend/internal/handler"
	"esteemed/backend/internal/logger"
	"esteemed/backend/internal/repository"
	"esteemed/backend/internal/router"
	"esteemed/backend/internal/service"
)

func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	loc, err := time.LoadLocation(cfg.StatsTimezone)
	if err != nil {
		appLog.Fatal("load stats timezone", "timezone", cfg.StatsTimezone, "error", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		appLog.Fatal("open database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		appLog.Fatal("run migrations", "error", err)
	}

	userRepo := repository.NewUserRepository(database)
	eventRepo := repository.NewEventRepository(database)
	engagementRepo := repository.NewEngagementRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, appLog)
	habitService := service.NewHabitService(userRepo, eventRepo, loc, appLog)
	engagementService := service.NewEngagementService(engagementRepo, appLog)

	authHandler := handler.NewAuthHandler(authService)
	habitHandler := handler.NewHabitHandler(habitService)
	engagementHandler := handler.NewEngagementHandler(engagementService)

	engine := router.New(authService, authHandler, habitHandler, engagementHandler, cfg.CORSOrigins, appLog)
	appLog.Info("backend listening", "port", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		appLog.Fatal("run server", "error", err)
	}
}
