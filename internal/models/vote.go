package models

import (
	"time"
)

// Vote 每个用户对每个实体至多一票，重复投票覆盖 Value
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EntityType EntityType `gorm:"size:20;not null;uniqueIndex:idx_vote_entity_user,priority:1" json:"entity_type"`
	EntityID   uint       `gorm:"not null;uniqueIndex:idx_vote_entity_user,priority:2" json:"entity_id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_vote_entity_user,priority:3;index" json:"user_id"`
	Value      int        `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
