package db

import (
	"context"
	"fmt"
	"time"

	"pinboard/internal/config"
	"pinboard/internal/logger"
	"pinboard/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	gormLogger := gormlogger.New(
		zap.NewStdLog(logger.Log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Log.Info("Database connection established")

	sqlDB, err := DB.DB()
	if err != nil {
		logger.Log.Fatal("Failed to get database instance", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(DB); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Log.Info("Database migration completed")

	SeedBoards(DB)
}

// Migrate 建表/同步结构
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.Thread{},
		&models.Response{},
		&models.Vote{},
		&models.Notification{},
		&models.DirectMessage{},
		&models.Follow{},
	)
}

// SeedBoards 首次启动时创建预设版块
func SeedBoards(gdb *gorm.DB) {
	var count int64
	gdb.Model(&models.Board{}).Count(&count)
	if count > 0 {
		logger.Log.Debug("Boards already seeded, skipping")
		return
	}

	boards := []models.Board{
		{Slug: "general", Name: "General", Description: "Anything goes"},
		{Slug: "tech", Name: "Tech", Description: "技术相关的讨论和分享"},
		{Slug: "show", Name: "Show", Description: "作品展示、项目分享"},
		{Slug: "offtopic", Name: "Off-topic", Description: "随便聊聊"},
	}
	for _, board := range boards {
		if err := gdb.Create(&board).Error; err != nil {
			logger.Log.Warn("Failed to create board", zap.String("slug", board.Slug), zap.Error(err))
		}
	}
	logger.Log.Info("Initial boards created", zap.Int("count", len(boards)))
}

// Health pings the database.
func Health(ctx context.Context, gdb *gorm.DB) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats := make(map[string]string)
	sqlDB, err := gdb.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := sqlDB.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	return stats
}
