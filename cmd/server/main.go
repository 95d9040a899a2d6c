package main

import (
	"fmt"
	"os"

	"pinboard/internal/config"
	"pinboard/internal/db"
	"pinboard/internal/logger"
	"pinboard/internal/metrics"
	"pinboard/internal/middleware"
	"pinboard/internal/router"
	"pinboard/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg := config.Load()
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	if envErr != nil {
		logger.Log.Info("No .env file found, using environment variables")
	}

	// Initialize Database
	db.Init(cfg)
	metrics.Get()

	svc := services.New(db.DB, cfg)

	// Initialize Gin
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID")
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("pinboard_session", store))

	// Middleware
	r.Use(middleware.LoadUser(db.DB))
	r.Use(middleware.GinLogger())

	router.RegisterRoutes(r, db.DB, svc)

	logger.Log.Info("Pinboard server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatal("server stopped", zap.Error(err))
	}
}
