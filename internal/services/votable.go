package services

import (
	"context"
	"errors"

	"pinboard/internal/models"

	"gorm.io/gorm"
)

// Votable is anything that can receive votes.
type Votable interface {
	VotableID() uint
	VotableType() models.EntityType
}

// EntityRef addresses a votable entity without loading it.
type EntityRef struct {
	Type models.EntityType
	ID   uint
}

func (r EntityRef) VotableID() uint                { return r.ID }
func (r EntityRef) VotableType() models.EntityType { return r.Type }

// ParseVotableType 解析路由中的实体类型，兼容旧的 post/comment 写法
func ParseVotableType(s string) (models.EntityType, bool) {
	switch s {
	case "thread", "post":
		return models.EntityThread, true
	case "response", "comment":
		return models.EntityResponse, true
	}
	return "", false
}

// EntityChecker reports whether a votable target exists.
type EntityChecker func(ctx context.Context, tx *gorm.DB, target Votable) (bool, error)

// GormEntityExists looks the target up in its own table.
func GormEntityExists(ctx context.Context, tx *gorm.DB, target Votable) (bool, error) {
	var model any
	switch target.VotableType() {
	case models.EntityThread:
		model = &models.Thread{}
	case models.EntityResponse:
		model = &models.Response{}
	default:
		return false, nil
	}

	err := tx.WithContext(ctx).Select("id").First(model, target.VotableID()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
