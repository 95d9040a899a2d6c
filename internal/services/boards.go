package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/models"
	"pinboard/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	boardCacheSize = 128
	boardCacheTTL  = 10 * time.Minute
)

// BoardDirectory 版块查询，按 slug 缓存
type BoardDirectory struct {
	db    *gorm.DB
	cache *utils.TTLCache[string, models.Board]
}

func NewBoardDirectory(db *gorm.DB) *BoardDirectory {
	cache, err := utils.NewTTLCache[string, models.Board](boardCacheSize)
	if err != nil {
		logger.Log.Warn("Board cache disabled", zap.Error(err))
	}
	return &BoardDirectory{db: db, cache: cache}
}

// BySlug 返回 slug 对应的版块，不存在时返回 NOT_FOUND。
// tx 为空时使用自身的连接。
func (d *BoardDirectory) BySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Board, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if d.cache != nil {
		if board, ok := d.cache.Get(slug); ok {
			return &board, nil
		}
	}

	if tx == nil {
		tx = d.db
	}
	var board models.Board
	if err := tx.WithContext(ctx).Where("slug = ?", slug).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("board")
		}
		return nil, apperrors.Persistence("load board", err)
	}

	if d.cache != nil {
		d.cache.Set(slug, board, boardCacheTTL)
	}
	return &board, nil
}

func (d *BoardDirectory) Invalidate(slug string) {
	if d.cache != nil {
		d.cache.Delete(strings.ToLower(strings.TrimSpace(slug)))
	}
}
