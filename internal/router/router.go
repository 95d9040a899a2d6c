package router

import (
	"pinboard/internal/handlers"
	"pinboard/internal/middleware"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func RegisterRoutes(r *gin.Engine, gdb *gorm.DB, svc *services.Services) {
	// Handlers
	voteHandler := handlers.NewVoteHandler(svc.Scores)
	feedHandler := handlers.NewFeedHandler(svc.Feed)
	threadHandler := handlers.NewThreadHandler(svc.Threads)
	followHandler := handlers.NewFollowHandler(svc.Follows)
	notificationHandler := handlers.NewNotificationHandler(svc.Unread)
	chatHandler := handlers.NewChatHandler(svc.Chat, svc.Unread)
	healthHandler := handlers.NewHealthHandler(gdb)

	// 公共路由 (Public Routes)
	r.GET("/healthz", healthHandler.Check)           // 数据库健康检查
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus 指标
	r.GET("/feed", feedHandler.List)                 // 帖子流 (排序/关注/搜索)
	r.GET("/vote/:type/:id", voteHandler.Show)       // 查看票数

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/threads", threadHandler.Create)                       // 发帖
		authorized.POST("/threads/:id/responses", threadHandler.CreateResponse) // 回复
		authorized.POST("/vote/:type/:id", voteHandler.Vote)                    // 投票 (value 默认 1)
		authorized.POST("/vote/:type/:id/down", voteHandler.Downvote)           // 踩

		authorized.GET("/users/:id/follow", followHandler.Status)      // 是否已关注
		authorized.POST("/users/:id/follow", followHandler.Follow)     // 关注
		authorized.DELETE("/users/:id/follow", followHandler.Unfollow) // 取消关注
	}

	// 通知路由 (Notification Routes)
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthRequired())
	{
		notifications.GET("", notificationHandler.List)                     // 我的通知列表
		notifications.GET("/unread-count", notificationHandler.UnreadCount) // 未读数 (轮询)
		notifications.POST("/read-all", notificationHandler.ReadAll)        // 全部通知标记为已读
		notifications.POST("/:id/read", notificationHandler.Read)           // 标记单条通知为已读
	}

	// 私信路由 (Chat Routes)
	chats := r.Group("/chats")
	chats.Use(middleware.AuthRequired())
	{
		chats.GET("", chatHandler.List)          // 会话列表 + 未读数
		chats.GET("/:userId", chatHandler.Open)  // 打开会话 (标记已读)
		chats.POST("/:userId", chatHandler.Send) // 发送私信
	}
}
