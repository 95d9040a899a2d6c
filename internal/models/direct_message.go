package models

import (
	"time"
)

type DirectMessage struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	SenderID       uint       `gorm:"not null;index" json:"sender_id"`
	Sender         User       `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE;" json:"-"`
	RecipientID    uint       `gorm:"not null;index" json:"recipient_id"`
	Recipient      User       `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE;" json:"-"`
	Body           string     `gorm:"type:text" json:"body"`
	SharedThreadID *uint      `gorm:"index" json:"shared_thread_id"`
	SharedThread   *Thread    `gorm:"foreignKey:SharedThreadID;constraint:OnDelete:SET NULL;" json:"shared_thread,omitempty"`
	ReadAt         *time.Time `gorm:"index" json:"read_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
