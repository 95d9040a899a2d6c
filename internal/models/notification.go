package models

import (
	"time"
)

type NotificationType string

const (
	NotificationReply         NotificationType = "reply"
	NotificationMention       NotificationType = "mention"
	NotificationFollow        NotificationType = "follow"
	NotificationDirectMessage NotificationType = "direct_message" // 不计入通知中心
)

type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index:idx_notification_inbox,priority:1" json:"user_id"` // Receiver
	ActorID    uint             `gorm:"not null;index" json:"actor_id"`                                  // Sender
	Actor      User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	EntityType EntityType       `gorm:"size:20;not null" json:"entity_type"`
	EntityID   uint             `gorm:"not null" json:"entity_id"`
	ThreadID   *uint            `gorm:"index" json:"thread_id"`
	Message    string           `gorm:"type:text" json:"message"`
	ReadAt     *time.Time       `gorm:"index:idx_notification_inbox,priority:2" json:"read_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
