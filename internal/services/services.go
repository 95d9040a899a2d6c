package services

import (
	"pinboard/internal/config"

	"gorm.io/gorm"
)

// Services wires the engine together over one database handle.
type Services struct {
	Scores   *ScoreService
	Mentions *MentionResolver
	Fanout   *FanoutEngine
	Follows  *FollowService
	Unread   *UnreadService
	Feed     *FeedService
	Chat     *ChatService
	Threads  *ThreadService
	Boards   *BoardDirectory
}

func New(db *gorm.DB, cfg *config.Config) *Services {
	mentions := NewMentionResolver(db, cfg.Mentions)
	fanout := NewFanoutEngine(mentions)
	scores := NewScoreService(db)
	boards := NewBoardDirectory(db)
	unread := NewUnreadService(db, cfg.NotificationListDefault, cfg.NotificationListMax)

	return &Services{
		Scores:   scores,
		Mentions: mentions,
		Fanout:   fanout,
		Follows:  NewFollowService(db, fanout),
		Unread:   unread,
		Feed:     NewFeedService(db, scores, boards),
		Chat:     NewChatService(db, unread, fanout, cfg.MessageMaxLength),
		Threads:  NewThreadService(db, fanout, boards),
		Boards:   boards,
	}
}
