package services

import (
	"context"
	"strconv"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/metrics"
	"pinboard/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Aggregate is the vote state of one entity as seen by one viewer.
type Aggregate struct {
	Upvotes    int64 `json:"upvotes"`
	Downvotes  int64 `json:"downvotes"`
	ViewerVote int   `json:"viewerVote"` // 0 = 未投票或匿名
}

// Score 净得分
func (a Aggregate) Score() int64 {
	return a.Upvotes - a.Downvotes
}

const tallySelect = "COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0) AS upvotes, " +
	"COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0) AS downvotes"

// ScoreService 投票账本。票数每次从 votes 表实时汇总，不维护计数列
type ScoreService struct {
	db     *gorm.DB
	exists EntityChecker
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{db: db, exists: GormEntityExists}
}

// WithEntityChecker swaps the existence check.
func (s *ScoreService) WithEntityChecker(fn EntityChecker) *ScoreService {
	s.exists = fn
	return s
}

// SubmitVote records voterID's vote on target, replacing any earlier vote,
// and returns the fresh aggregate. Voting on your own content is allowed.
func (s *ScoreService) SubmitVote(ctx context.Context, voterID uint, target Votable, value int) (Aggregate, error) {
	if value != 1 && value != -1 {
		return Aggregate{}, apperrors.InvalidVoteValue(value)
	}

	var agg Aggregate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.exists(ctx, tx, target)
		if err != nil {
			return apperrors.Persistence("load vote target", err)
		}
		if !ok {
			return apperrors.EntityNotFound(string(target.VotableType()), target.VotableID())
		}

		vote := models.Vote{
			EntityType: target.VotableType(),
			EntityID:   target.VotableID(),
			UserID:     voterID,
			Value:      value,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&vote).Error
		if err != nil {
			return apperrors.Persistence("submit vote", err)
		}

		agg, err = aggregate(tx, target, voterID)
		return err
	})
	if err != nil {
		return Aggregate{}, err
	}

	metrics.Get().VotesSubmitted.WithLabelValues(string(target.VotableType()), strconv.Itoa(value)).Inc()
	logger.Log.Debug("vote recorded",
		logger.WithUserID(voterID),
		logger.WithEntity(string(target.VotableType()), target.VotableID()),
		zap.Int("value", value),
	)
	return agg, nil
}

// Aggregate 读取单个实体的票数；viewerID 为 0 表示匿名
func (s *ScoreService) Aggregate(ctx context.Context, target Votable, viewerID uint) (Aggregate, error) {
	return aggregate(s.db.WithContext(ctx), target, viewerID)
}

func aggregate(tx *gorm.DB, target Votable, viewerID uint) (Aggregate, error) {
	var agg Aggregate
	err := tx.Model(&models.Vote{}).
		Select(tallySelect).
		Where("entity_type = ? AND entity_id = ?", target.VotableType(), target.VotableID()).
		Scan(&agg).Error
	if err != nil {
		return Aggregate{}, apperrors.Persistence("aggregate votes", err)
	}
	agg.ViewerVote = 0

	if viewerID != 0 {
		var values []int
		err := tx.Model(&models.Vote{}).
			Where("entity_type = ? AND entity_id = ? AND user_id = ?", target.VotableType(), target.VotableID(), viewerID).
			Limit(1).
			Pluck("value", &values).Error
		if err != nil {
			return Aggregate{}, apperrors.Persistence("load viewer vote", err)
		}
		if len(values) > 0 {
			agg.ViewerVote = values[0]
		}
	}
	return agg, nil
}

// AggregateMany 批量汇总，供 feed 使用。没有任何投票的实体也会出现在结果中
func (s *ScoreService) AggregateMany(ctx context.Context, entityType models.EntityType, ids []uint, viewerID uint) (map[uint]Aggregate, error) {
	result := make(map[uint]Aggregate, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	for _, id := range ids {
		result[id] = Aggregate{}
	}

	type tallyRow struct {
		EntityID  uint
		Upvotes   int64
		Downvotes int64
	}
	var rows []tallyRow
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("entity_id, "+tallySelect).
		Where("entity_type = ? AND entity_id IN ?", entityType, ids).
		Group("entity_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Persistence("aggregate votes", err)
	}
	for _, r := range rows {
		result[r.EntityID] = Aggregate{Upvotes: r.Upvotes, Downvotes: r.Downvotes}
	}

	if viewerID != 0 {
		var mine []models.Vote
		err := s.db.WithContext(ctx).
			Where("entity_type = ? AND entity_id IN ? AND user_id = ?", entityType, ids, viewerID).
			Find(&mine).Error
		if err != nil {
			return nil, apperrors.Persistence("load viewer votes", err)
		}
		for _, v := range mine {
			agg := result[v.EntityID]
			agg.ViewerVote = v.Value
			result[v.EntityID] = agg
		}
	}
	return result, nil
}
