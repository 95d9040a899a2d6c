package clientsync

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pinboard/internal/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SessionCookieName matches the cookie set by the server's session store.
const SessionCookieName = "pinboard_session"

// Client talks to the pinboard HTTP API.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "pinboard-badge/0.1")

	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Log.Debug("HTTP response",
			zap.String("method", resp.Request.Method),
			zap.String("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode()),
		)
		return nil
	})
	return &Client{http: c}
}

// SetSession attaches the session cookie to every request.
func (c *Client) SetSession(value string) {
	c.http.SetCookie(&http.Cookie{Name: SessionCookieName, Value: value})
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&failure).
		Get(path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		if failure.Error.Code != "" {
			return fmt.Errorf("GET %s: %s: %s", path, failure.Error.Code, failure.Error.Message)
		}
		return fmt.Errorf("GET %s: %s", path, resp.Status())
	}
	return nil
}

// NotificationUnreadCount fetches the notification badge total.
func (c *Client) NotificationUnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	if err := c.get(ctx, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

// ChatUnreadTotal fetches the chat list and returns its unread total.
func (c *Client) ChatUnreadTotal(ctx context.Context) (int64, error) {
	var out struct {
		TotalUnread int64 `json:"totalUnread"`
	}
	if err := c.get(ctx, "/chats", &out); err != nil {
		return 0, err
	}
	return out.TotalUnread, nil
}

// OpenConversation opens a chat, which marks it read server side, and
// returns the remaining unread total.
func (c *Client) OpenConversation(ctx context.Context, userID uint) (int64, error) {
	var out struct {
		TotalUnread int64 `json:"totalUnread"`
	}
	if err := c.get(ctx, fmt.Sprintf("/chats/%d", userID), &out); err != nil {
		return 0, err
	}
	return out.TotalUnread, nil
}
