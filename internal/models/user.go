package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Handle    string    `gorm:"uniqueIndex;size:30;not null" json:"handle"`  // 小写, 用于 @提及
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	Status    int       `gorm:"default:0" json:"status"`                     // 0:正常, 1:禁言, 2:封禁
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave 统一句柄为小写，@提及按小写匹配
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Handle = strings.ToLower(strings.TrimSpace(u.Handle))
	return nil
}
