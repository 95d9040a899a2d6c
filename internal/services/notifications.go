package services

import (
	"context"
	"errors"
	"fmt"

	"pinboard/internal/logger"
	"pinboard/internal/metrics"
	"pinboard/internal/models"
	"pinboard/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const excerptLength = 140

// FanoutResult lists what one event produced.
type FanoutResult struct {
	Created []models.Notification
	Failed  int
}

func (r *FanoutResult) add(n *models.Notification, ok bool) {
	if ok {
		r.Created = append(r.Created, *n)
	} else {
		r.Failed++
	}
}

// ReplyEvent 新回复。Response.ParentID 不为空时直接通知被回复者，否则通知帖子作者
type ReplyEvent struct {
	Actor    *models.User
	Thread   *models.Thread
	Response *models.Response
}

type ThreadEvent struct {
	Actor  *models.User
	Thread *models.Thread
}

type FollowEvent struct {
	Actor       *models.User
	FollowingID uint
}

type DirectMessageEvent struct {
	Actor   *models.User
	Message *models.DirectMessage
}

// FanoutEngine turns write events into notification rows.
//
// Every method takes the transaction of the write that triggered it. Each
// statement the engine issues on that transaction, reads included, runs in
// its own savepoint: a failure is logged, counted and rolled back on its own,
// and is never returned to the caller.
type FanoutEngine struct {
	mentions *MentionResolver
}

func NewFanoutEngine(mentions *MentionResolver) *FanoutEngine {
	return &FanoutEngine{mentions: mentions}
}

// NotifyReply sends REPLY to the direct target, then MENTION to everyone
// mentioned in the body who is neither the actor nor the reply target.
func (f *FanoutEngine) NotifyReply(ctx context.Context, tx *gorm.DB, ev ReplyEvent) FanoutResult {
	var result FanoutResult
	exclude := map[uint]struct{}{ev.Actor.ID: {}}
	threadID := ev.Thread.ID

	targetID := f.replyTarget(ctx, tx, ev)
	if targetID != ev.Actor.ID {
		n := &models.Notification{
			UserID:     targetID,
			ActorID:    ev.Actor.ID,
			Type:       models.NotificationReply,
			EntityType: models.EntityResponse,
			EntityID:   ev.Response.ID,
			ThreadID:   &threadID,
			Message:    fmt.Sprintf("%s replied in \"%s\": %s", ev.Actor.Name, ev.Thread.Title, utils.PlainExcerpt(ev.Response.Body, excerptLength)),
		}
		result.add(n, f.create(ctx, tx, n))
	}
	exclude[targetID] = struct{}{}

	f.notifyMentions(ctx, tx, &result, exclude, ev.Actor, ev.Response.Body, func(userID uint) *models.Notification {
		return &models.Notification{
			UserID:     userID,
			ActorID:    ev.Actor.ID,
			Type:       models.NotificationMention,
			EntityType: models.EntityResponse,
			EntityID:   ev.Response.ID,
			ThreadID:   &threadID,
			Message:    fmt.Sprintf("%s mentioned you in \"%s\": %s", ev.Actor.Name, ev.Thread.Title, utils.PlainExcerpt(ev.Response.Body, excerptLength)),
		}
	})
	return result
}

// replyTarget 楼中楼通知父回复作者；父回复查不到时退回帖子作者
func (f *FanoutEngine) replyTarget(ctx context.Context, tx *gorm.DB, ev ReplyEvent) uint {
	if ev.Response.ParentID == nil {
		return ev.Thread.UserID
	}
	var parent models.Response
	err := isolated(ctx, tx, func(sp *gorm.DB) error {
		return sp.Select("id", "user_id").
			Where("id = ? AND thread_id = ?", *ev.Response.ParentID, ev.Thread.ID).
			First(&parent).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WarnWithFields("load parent response failed", err, zap.Uint("parent_id", *ev.Response.ParentID))
		}
		return ev.Thread.UserID
	}
	return parent.UserID
}

// NotifyThreadCreated 新帖只有提及通知，扫描标题和正文
func (f *FanoutEngine) NotifyThreadCreated(ctx context.Context, tx *gorm.DB, ev ThreadEvent) FanoutResult {
	var result FanoutResult
	exclude := map[uint]struct{}{ev.Actor.ID: {}}
	threadID := ev.Thread.ID
	text := ev.Thread.Title + "\n" + ev.Thread.Body

	f.notifyMentions(ctx, tx, &result, exclude, ev.Actor, text, func(userID uint) *models.Notification {
		return &models.Notification{
			UserID:     userID,
			ActorID:    ev.Actor.ID,
			Type:       models.NotificationMention,
			EntityType: models.EntityThread,
			EntityID:   ev.Thread.ID,
			ThreadID:   &threadID,
			Message:    fmt.Sprintf("%s mentioned you in \"%s\"", ev.Actor.Name, ev.Thread.Title),
		}
	})
	return result
}

// NotifyFollow must only be called when the follow row was actually inserted.
func (f *FanoutEngine) NotifyFollow(ctx context.Context, tx *gorm.DB, ev FollowEvent) FanoutResult {
	var result FanoutResult
	n := &models.Notification{
		UserID:     ev.FollowingID,
		ActorID:    ev.Actor.ID,
		Type:       models.NotificationFollow,
		EntityType: models.EntityUser,
		EntityID:   ev.Actor.ID,
		Message:    fmt.Sprintf("%s started following you", ev.Actor.Name),
	}
	if n.UserID != n.ActorID {
		result.add(n, f.create(ctx, tx, n))
	}
	return result
}

// NotifyDirectMessage 私信通知只用于聊天未读，不进入通知中心
func (f *FanoutEngine) NotifyDirectMessage(ctx context.Context, tx *gorm.DB, ev DirectMessageEvent) FanoutResult {
	var result FanoutResult
	preview := utils.PlainExcerpt(ev.Message.Body, excerptLength)
	if preview == "" && ev.Message.SharedThreadID != nil {
		preview = "shared a post"
	}
	n := &models.Notification{
		UserID:     ev.Message.RecipientID,
		ActorID:    ev.Actor.ID,
		Type:       models.NotificationDirectMessage,
		EntityType: models.EntityDirectMessage,
		EntityID:   ev.Message.ID,
		ThreadID:   ev.Message.SharedThreadID,
		Message:    fmt.Sprintf("%s: %s", ev.Actor.Name, preview),
	}
	if n.UserID != n.ActorID {
		result.add(n, f.create(ctx, tx, n))
	}
	return result
}

func (f *FanoutEngine) notifyMentions(ctx context.Context, tx *gorm.DB, result *FanoutResult, exclude map[uint]struct{},
	actor *models.User, text string, build func(userID uint) *models.Notification) {
	var mentions []Mention
	err := isolated(ctx, tx, func(sp *gorm.DB) error {
		var err error
		mentions, err = f.mentions.Resolve(ctx, sp, text)
		return err
	})
	if err != nil {
		logger.ErrorWithFields("resolve mentions failed", err, logger.WithUserID(actor.ID))
		metrics.Get().FanoutFailures.WithLabelValues(string(models.NotificationMention)).Inc()
		result.Failed++
		return
	}

	for _, m := range mentions {
		if _, skip := exclude[m.UserID]; skip {
			continue
		}
		exclude[m.UserID] = struct{}{}
		n := build(m.UserID)
		result.add(n, f.create(ctx, tx, n))
	}
}

func (f *FanoutEngine) create(ctx context.Context, tx *gorm.DB, n *models.Notification) bool {
	if n.UserID == n.ActorID {
		return false
	}

	err := isolated(ctx, tx, func(sp *gorm.DB) error {
		return sp.Omit("Actor").Create(n).Error
	})
	if err != nil {
		logger.ErrorWithFields("notification insert failed", err,
			zap.String("type", string(n.Type)),
			zap.Uint("recipient_id", n.UserID),
			zap.Uint("actor_id", n.ActorID),
		)
		metrics.Get().FanoutFailures.WithLabelValues(string(n.Type)).Inc()
		return false
	}

	metrics.Get().NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	return true
}

// isolated 在 savepoint 中执行 fn。Postgres 中语句失败会中止整个事务，
// 回滚到 savepoint 后外层写入仍可提交
func isolated(ctx context.Context, tx *gorm.DB, fn func(sp *gorm.DB) error) error {
	return tx.WithContext(ctx).Transaction(fn)
}
