package services

import (
	"context"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/metrics"
	"pinboard/internal/models"

	"gorm.io/gorm"
)

// ListOptions 通知列表参数
type ListOptions struct {
	Limit      int
	UnreadOnly bool
}

// UnreadService keeps per-user unread counts. Counts are always read from
// storage so that independent pollers agree with each other.
type UnreadService struct {
	db           *gorm.DB
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func NewUnreadService(db *gorm.DB, defaultLimit, maxLimit int) *UnreadService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &UnreadService{db: db, defaultLimit: defaultLimit, maxLimit: maxLimit, now: time.Now}
}

// ClampLimit 0 或负数取默认值，超过上限取上限
func (s *UnreadService) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func (s *UnreadService) inbox(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND type <> ?", userID, models.NotificationDirectMessage)
}

// UnreadNotificationCount 未读通知数，不含私信
func (s *UnreadService) UnreadNotificationCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.inbox(ctx, userID).Where("read_at IS NULL").Count(&count).Error; err != nil {
		return 0, apperrors.Persistence("count unread notifications", err)
	}
	return count, nil
}

// ListNotifications 最新的在前，私信通知不出现在这里
func (s *UnreadService) ListNotifications(ctx context.Context, userID uint, opts ListOptions) ([]models.Notification, error) {
	q := s.inbox(ctx, userID).Preload("Actor")
	if opts.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var list []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Limit(s.ClampLimit(opts.Limit)).Find(&list).Error
	if err != nil {
		return nil, apperrors.Persistence("list notifications", err)
	}
	return list, nil
}

// MarkOneRead marks a single notification read. It reports false when the
// notification does not exist, belongs to someone else, is a direct message
// notification, or was already read.
func (s *UnreadService) MarkOneRead(ctx context.Context, userID, notificationID uint) (bool, error) {
	res := s.inbox(ctx, userID).
		Where("id = ? AND read_at IS NULL", notificationID).
		Update("read_at", s.now())
	if res.Error != nil {
		return false, apperrors.Persistence("mark notification read", res.Error)
	}
	metrics.Get().NotificationsRead.WithLabelValues("notification").Add(float64(res.RowsAffected))
	return res.RowsAffected > 0, nil
}

// MarkAllRead 全部标记已读，返回本次标记的条数
func (s *UnreadService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.inbox(ctx, userID).Where("read_at IS NULL").Update("read_at", s.now())
	if res.Error != nil {
		return 0, apperrors.Persistence("mark all notifications read", res.Error)
	}
	metrics.Get().NotificationsRead.WithLabelValues("notification").Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}

// UnreadDirectMessageCount 未读私信总数
func (s *UnreadService) UnreadDirectMessageCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Persistence("count unread messages", err)
	}
	return count, nil
}

// UnreadByConversation 按发送者分组的未读私信数
func (s *UnreadService) UnreadByConversation(ctx context.Context, userID uint) (map[uint]int64, error) {
	type row struct {
		SenderID uint
		Unread   int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Persistence("count unread messages", err)
	}

	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.SenderID] = r.Unread
	}
	return out, nil
}

// MarkConversationRead marks everything otherID sent to viewerID as read,
// together with the matching direct message notifications. tx may be nil.
func (s *UnreadService) MarkConversationRead(ctx context.Context, tx *gorm.DB, viewerID, otherID uint) (int64, error) {
	if tx == nil {
		tx = s.db
	}
	now := s.now()

	res := tx.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("recipient_id = ? AND sender_id = ? AND read_at IS NULL", viewerID, otherID).
		Update("read_at", now)
	if res.Error != nil {
		return 0, apperrors.Persistence("mark conversation read", res.Error)
	}

	err := tx.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND actor_id = ? AND type = ? AND read_at IS NULL", viewerID, otherID, models.NotificationDirectMessage).
		Update("read_at", now).Error
	if err != nil {
		return 0, apperrors.Persistence("mark message notifications read", err)
	}

	metrics.Get().NotificationsRead.WithLabelValues("direct_message").Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}
