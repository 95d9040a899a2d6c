package services

import (
	"context"
	"errors"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowService struct {
	db     *gorm.DB
	fanout *FanoutEngine
}

func NewFollowService(db *gorm.DB, fanout *FanoutEngine) *FollowService {
	return &FollowService{db: db, fanout: fanout}
}

// Follow 关注用户。重复关注是幂等的，只有首次建立关系时才发送 FOLLOW 通知
func (s *FollowService) Follow(ctx context.Context, follower *models.User, targetID uint) (bool, error) {
	if follower.ID == targetID {
		return false, apperrors.ValidationError("user_id", "you cannot follow yourself")
	}

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Select("id").First(&target, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user")
			}
			return apperrors.Persistence("load user", err)
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: follower.ID, FollowingID: targetID})
		if res.Error != nil {
			return apperrors.Persistence("follow user", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		created = true
		s.fanout.NotifyFollow(ctx, tx, FollowEvent{Actor: follower, FollowingID: targetID})
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		logger.Log.Debug("follow created", logger.WithUserID(follower.ID))
	}
	return created, nil
}

// Unfollow 取消关注，返回是否真的删除了关系
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, targetID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, apperrors.Persistence("unfollow user", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsFollowing 供用户资料展示使用
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, targetID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Persistence("load follow", err)
	}
	return count > 0, nil
}
