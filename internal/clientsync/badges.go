package clientsync

import (
	"context"
	"time"
)

// Badges is the pair of regions a signed-in page shows: the notification
// bell and the chat counter.
type Badges struct {
	Bus           *Bus
	Notifications *Region
	Chats         *Region
	client        *Client
}

func NewBadges(client *Client, notificationInterval, chatInterval time.Duration) *Badges {
	bus := NewBus()
	return &Badges{
		Bus:           bus,
		Notifications: NewRegion("notifications", TopicNotificationUnread, bus, notificationInterval, client.NotificationUnreadCount),
		Chats:         NewRegion("chats", TopicChatUnread, bus, chatInterval, client.ChatUnreadTotal),
		client:        client,
	}
}

func (b *Badges) Activate(ctx context.Context) {
	b.Notifications.Activate(ctx)
	b.Chats.Activate(ctx)
}

func (b *Badges) Deactivate() {
	b.Notifications.Deactivate()
	b.Chats.Deactivate()
}

// OpenConversation opens a chat and pushes the new chat total to every
// region without waiting for the next poll.
func (b *Badges) OpenConversation(ctx context.Context, userID uint) error {
	total, err := b.client.OpenConversation(ctx, userID)
	if err != nil {
		return err
	}
	b.Bus.Publish(UnreadEvent{Topic: TopicChatUnread, Total: total, Source: "conversation"})
	return nil
}
