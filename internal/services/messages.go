package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/logger"
	"pinboard/internal/models"
	"pinboard/internal/utils"

	"gorm.io/gorm"
)

// ConversationSummary 聊天列表中的一行
type ConversationSummary struct {
	UserID        uint       `json:"id"`
	Name          string     `json:"name"`
	Handle        string     `json:"handle"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	UnreadCount   int64      `json:"unreadCount"`
}

type SendInput struct {
	Body           string
	SharedThreadID *uint
}

type ChatService struct {
	db      *gorm.DB
	unread  *UnreadService
	fanout  *FanoutEngine
	maxBody int
}

func NewChatService(db *gorm.DB, unread *UnreadService, fanout *FanoutEngine, maxBody int) *ChatService {
	if maxBody <= 0 {
		maxBody = 2000
	}
	return &ChatService{db: db, unread: unread, fanout: fanout, maxBody: maxBody}
}

// ListConversations lists every other user with the latest message exchanged
// and the unread count from them. Users with messages come first, newest
// first; the rest are ordered by name.
func (s *ChatService) ListConversations(ctx context.Context, viewerID uint, search string) ([]ConversationSummary, int64, error) {
	users := s.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", viewerID)
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		users = users.Where("LOWER(name) LIKE ? ESCAPE ? OR handle LIKE ? ESCAPE ?",
			utils.ContainsPattern(term), utils.LikeEscape,
			utils.ContainsPattern(strings.TrimPrefix(term, "@")), utils.LikeEscape)
	}
	var others []models.User
	if err := users.Find(&others).Error; err != nil {
		return nil, 0, apperrors.Persistence("list chat users", err)
	}

	var messages []models.DirectMessage
	err := s.db.WithContext(ctx).Preload("SharedThread").
		Where("sender_id = ? OR recipient_id = ?", viewerID, viewerID).
		Order("created_at DESC").Order("id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, 0, apperrors.Persistence("load messages", err)
	}
	last := make(map[uint]*models.DirectMessage)
	for i := range messages {
		m := &messages[i]
		other := m.SenderID
		if other == viewerID {
			other = m.RecipientID
		}
		if _, seen := last[other]; !seen {
			last[other] = m
		}
	}

	unread, err := s.unread.UnreadByConversation(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	for _, n := range unread {
		total += n
	}

	list := make([]ConversationSummary, 0, len(others))
	for _, u := range others {
		row := ConversationSummary{UserID: u.ID, Name: u.Name, Handle: u.Handle, UnreadCount: unread[u.ID]}
		if m, ok := last[u.ID]; ok {
			at := m.CreatedAt
			row.LastMessageAt = &at
			row.LastMessage = messagePreview(m)
		}
		list = append(list, row)
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt == nil:
			return true
		case a.LastMessageAt == nil && b.LastMessageAt != nil:
			return false
		case a.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.LastMessageAt.After(*b.LastMessageAt)
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return list, total, nil
}

func messagePreview(m *models.DirectMessage) string {
	if body := strings.TrimSpace(m.Body); body != "" {
		return body
	}
	if m.SharedThread != nil {
		return "Shared post: " + m.SharedThread.Title
	}
	return ""
}

// OpenConversation returns the other user and the full history, oldest
// first. Opening a conversation marks the incoming messages read.
func (s *ChatService) OpenConversation(ctx context.Context, viewerID, otherID uint) (*models.User, []models.DirectMessage, error) {
	if viewerID == otherID {
		return nil, nil, apperrors.BadRequest("you cannot chat with yourself")
	}

	var other models.User
	var messages []models.DirectMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&other, otherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user")
			}
			return apperrors.Persistence("load user", err)
		}

		if _, err := s.unread.MarkConversationRead(ctx, tx, viewerID, otherID); err != nil {
			return err
		}

		err := tx.Preload("SharedThread").
			Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", viewerID, otherID, otherID, viewerID).
			Order("created_at ASC").Order("id ASC").
			Find(&messages).Error
		if err != nil {
			return apperrors.Persistence("load conversation", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &other, messages, nil
}

// Send 发送私信，正文和分享帖子至少有一个
func (s *ChatService) Send(ctx context.Context, sender *models.User, recipientID uint, in SendInput) (*models.DirectMessage, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" && in.SharedThreadID == nil {
		return nil, apperrors.ValidationError("body", "message body or shared thread is required")
	}
	if utf8.RuneCountInString(body) > s.maxBody {
		return nil, apperrors.ValidationError("body", "message is too long")
	}
	if sender.ID == recipientID {
		return nil, apperrors.BadRequest("you cannot message yourself")
	}

	msg := &models.DirectMessage{
		SenderID:       sender.ID,
		RecipientID:    recipientID,
		Body:           body,
		SharedThreadID: in.SharedThreadID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipient models.User
		if err := tx.Select("id").First(&recipient, recipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user")
			}
			return apperrors.Persistence("load user", err)
		}
		if in.SharedThreadID != nil {
			var thread models.Thread
			if err := tx.Select("id", "title").First(&thread, *in.SharedThreadID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("shared thread")
				}
				return apperrors.Persistence("load thread", err)
			}
			msg.SharedThread = &thread
		}

		if err := tx.Omit("Sender", "Recipient", "SharedThread").Create(msg).Error; err != nil {
			return apperrors.Persistence("send message", err)
		}

		s.fanout.NotifyDirectMessage(ctx, tx, DirectMessageEvent{Actor: sender, Message: msg})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("direct message sent", logger.WithUserID(sender.ID), logger.WithEntity(string(models.EntityDirectMessage), msg.ID))
	return msg, nil
}
