package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTitleLength = 200

type CreateThreadInput struct {
	BoardSlug string
	Title     string
	Body      string
}

type CreateResponseInput struct {
	Body     string
	ParentID *uint
}

// ThreadService 发帖与回复，写入后在同一事务内触发通知
type ThreadService struct {
	db     *gorm.DB
	fanout *FanoutEngine
	boards *BoardDirectory
}

func NewThreadService(db *gorm.DB, fanout *FanoutEngine, boards *BoardDirectory) *ThreadService {
	return &ThreadService{db: db, fanout: fanout, boards: boards}
}

func (s *ThreadService) CreateThread(ctx context.Context, author *models.User, in CreateThreadInput) (*models.Thread, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.ValidationError("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperrors.ValidationError("title", "title is too long")
	}

	thread := &models.Thread{UserID: author.ID, Title: title, Body: strings.TrimSpace(in.Body)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.BoardSlug != "" {
			board, err := s.boards.BySlug(ctx, tx, in.BoardSlug)
			if err != nil {
				return err
			}
			thread.BoardID = board.ID
			thread.Board = *board
		}

		if err := tx.Omit("User", "Board").Create(thread).Error; err != nil {
			return apperrors.Persistence("create thread", err)
		}

		s.fanout.NotifyThreadCreated(ctx, tx, ThreadEvent{Actor: author, Thread: thread})
		return nil
	})
	if err != nil {
		return nil, err
	}

	thread.User = *author
	logger.Log.Info("thread created", logger.WithUserID(author.ID), zap.Uint("thread_id", thread.ID))
	return thread, nil
}

// CreateResponse 回复帖子；ParentID 必须属于同一帖子
func (s *ThreadService) CreateResponse(ctx context.Context, author *models.User, threadID uint, in CreateResponseInput) (*models.Response, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperrors.ValidationError("body", "response body is required")
	}

	response := &models.Response{ThreadID: threadID, UserID: author.ID, ParentID: in.ParentID, Body: body}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := tx.First(&thread, threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.EntityNotFound(string(models.EntityThread), threadID)
			}
			return apperrors.Persistence("load thread", err)
		}

		if in.ParentID != nil {
			var count int64
			err := tx.Model(&models.Response{}).Where("id = ? AND thread_id = ?", *in.ParentID, threadID).Count(&count).Error
			if err != nil {
				return apperrors.Persistence("load parent response", err)
			}
			if count == 0 {
				return apperrors.EntityNotFound(string(models.EntityResponse), *in.ParentID)
			}
		}

		if err := tx.Omit("User", "Thread").Create(response).Error; err != nil {
			return apperrors.Persistence("create response", err)
		}

		s.fanout.NotifyReply(ctx, tx, ReplyEvent{Actor: author, Thread: &thread, Response: response})
		return nil
	})
	if err != nil {
		return nil, err
	}

	response.User = *author
	logger.Log.Info("response created", logger.WithUserID(author.ID), zap.Uint("thread_id", threadID), zap.Uint("response_id", response.ID))
	return response, nil
}
