package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"pinboard/internal/config"
	"pinboard/internal/db"
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine

	alice *models.User
	bob   *models.User
	carol *models.User
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	s.Require().NoError(err)
	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(db.Migrate(gdb))
	db.SeedBoards(gdb)
	s.db = gdb

	cfg := &config.Config{
		Mentions:                config.DefaultMentions(),
		MessageMaxLength:        2000,
		NotificationListDefault: 50,
		NotificationListMax:     100,
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(s.testAuth())
	r.Use(middleware.GinLogger())
	RegisterRoutes(r, gdb, services.New(gdb, cfg))
	s.router = r

	s.alice = s.createUser("alice", "Alice")
	s.bob = s.createUser("bob", "Bob")
	s.carol = s.createUser("carol", "Carol")
}

func (s *RouterTestSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// testAuth stands in for the session middleware: X-User-ID picks the user.
func (s *RouterTestSuite) testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			id, _ := strconv.Atoi(raw)
			var user models.User
			if err := s.db.First(&user, id).Error; err == nil {
				c.Set(middleware.CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

func (s *RouterTestSuite) createUser(handle, name string) *models.User {
	u := &models.User{Handle: handle, Name: name}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *RouterTestSuite) createThread(author *models.User, title string, createdAt time.Time) *models.Thread {
	th := &models.Thread{UserID: author.ID, BoardID: 1, Title: title, CreatedAt: createdAt}
	s.Require().NoError(s.db.Omit("User", "Board").Create(th).Error)
	return th
}

func (s *RouterTestSuite) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("X-User-ID", fmt.Sprint(as.ID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *RouterTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	body := s.decode(w)
	errBody, ok := body["error"].(map[string]any)
	s.Require().True(ok, w.Body.String())
	return errBody["code"].(string)
}

func (s *RouterTestSuite) TestVoteFlow() {
	thread := s.createThread(s.alice, "Hello", time.Now())
	path := fmt.Sprintf("/vote/thread/%d", thread.ID)

	w := s.do(http.MethodPost, path, s.bob, map[string]int{"value": 1})
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.EqualValues(1, body["upvotes"])
	s.EqualValues(0, body["downvotes"])
	s.EqualValues(1, body["viewerVote"])

	w = s.do(http.MethodPost, path+"/down", s.bob, nil)
	s.Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.EqualValues(0, body["upvotes"])
	s.EqualValues(1, body["downvotes"])
	s.EqualValues(-1, body["score"])

	w = s.do(http.MethodPost, path, s.carol, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, path, nil, nil)
	s.Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.EqualValues(1, body["upvotes"])
	s.EqualValues(1, body["downvotes"])
	s.EqualValues(0, body["viewerVote"])
}

func (s *RouterTestSuite) TestVoteErrors() {
	thread := s.createThread(s.alice, "Hello", time.Now())

	w := s.do(http.MethodPost, fmt.Sprintf("/vote/thread/%d", thread.ID), s.bob, map[string]int{"value": 2})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("INVALID_VOTE_VALUE", s.errorCode(w))

	w = s.do(http.MethodPost, "/vote/thread/999", s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("ENTITY_NOT_FOUND", s.errorCode(w))

	w = s.do(http.MethodPost, "/vote/user/1", s.bob, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/vote/thread/abc", s.bob, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/vote/thread/%d", thread.ID), nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterTestSuite) TestReplyNotificationsAndReadState() {
	thread := s.createThread(s.alice, "Weekend", time.Now())

	w := s.do(http.MethodPost, fmt.Sprintf("/threads/%d/responses", thread.ID), s.bob,
		map[string]string{"body": "@carol thoughts? also @alice"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/notifications/unread-count", s.alice, nil)
	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(1, s.decode(w)["unreadCount"])

	w = s.do(http.MethodGet, "/notifications?unread=1", s.carol, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	list := body["notifications"].([]any)
	s.Require().Len(list, 1)
	first := list[0].(map[string]any)
	s.Equal("mention", first["type"])
	s.Equal("bob", first["actor"].(map[string]any)["handle"])
	s.EqualValues(1, body["unreadCount"])

	id := int(first["id"].(float64))
	w = s.do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), s.alice, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["markedRead"], "not alice's notification")

	w = s.do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), s.carol, nil)
	s.Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Equal(true, body["markedRead"])
	s.EqualValues(0, body["unreadCount"])

	w = s.do(http.MethodPost, "/notifications/read-all", s.alice, nil)
	s.Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.EqualValues(1, body["markedRead"])
	s.EqualValues(0, body["unreadCount"])

	w = s.do(http.MethodPost, "/notifications/abc/read", s.alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestCreateThreadMentions() {
	w := s.do(http.MethodPost, "/threads", s.bob, map[string]string{"title": "Ping @carol", "body": "and @carol again"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/notifications/unread-count", s.carol, nil)
	s.EqualValues(1, s.decode(w)["unreadCount"])

	w = s.do(http.MethodPost, "/threads", s.bob, map[string]string{"title": "  "})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *RouterTestSuite) TestChatFlow() {
	w := s.do(http.MethodPost, fmt.Sprintf("/chats/%d", s.alice.ID), s.bob, map[string]string{"body": "hi alice"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/chats", s.alice, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.EqualValues(1, body["totalUnread"])
	users := body["users"].([]any)
	s.Require().Len(users, 2)
	s.Equal("bob", users[0].(map[string]any)["handle"])
	s.Equal("hi alice", users[0].(map[string]any)["lastMessage"])

	w = s.do(http.MethodGet, "/notifications/unread-count", s.alice, nil)
	s.EqualValues(0, s.decode(w)["unreadCount"], "direct messages are not notifications")

	w = s.do(http.MethodGet, fmt.Sprintf("/chats/%d", s.bob.ID), s.alice, nil)
	s.Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.EqualValues(0, body["totalUnread"])
	s.Len(body["messages"].([]any), 1)

	w = s.do(http.MethodGet, fmt.Sprintf("/chats/%d", s.alice.ID), s.alice, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/chats/999", s.alice, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/chats/%d", s.alice.ID), s.bob, map[string]string{"body": strings.Repeat("a", 2001)})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *RouterTestSuite) TestFollowTwiceNotifiesOnce() {
	path := fmt.Sprintf("/users/%d/follow", s.alice.ID)

	w := s.do(http.MethodPost, path, s.bob, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["created"])

	w = s.do(http.MethodPost, path, s.bob, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["created"])

	w = s.do(http.MethodGet, "/notifications", s.alice, nil)
	s.Len(s.decode(w)["notifications"].([]any), 1)

	w = s.do(http.MethodGet, path, s.bob, nil)
	s.Equal(true, s.decode(w)["following"])

	w = s.do(http.MethodDelete, path, s.bob, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["removed"])

	w = s.do(http.MethodPost, fmt.Sprintf("/users/%d/follow", s.bob.ID), s.bob, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *RouterTestSuite) TestFeedSorting() {
	older := s.createThread(s.alice, "older", time.Now().Add(-time.Hour))
	newer := s.createThread(s.bob, "newer", time.Now())
	s.do(http.MethodPost, fmt.Sprintf("/vote/thread/%d", older.ID), s.carol, nil)

	w := s.do(http.MethodGet, "/feed?sort=top", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("top", body["sort"])
	threads := body["threads"].([]any)
	s.Require().Len(threads, 2)
	s.EqualValues(older.ID, threads[0].(map[string]any)["id"])

	w = s.do(http.MethodGet, "/feed?sort=whatever", nil, nil)
	body = s.decode(w)
	s.Equal("new", body["sort"])
	s.EqualValues(newer.ID, body["threads"].([]any)[0].(map[string]any)["id"])

	w = s.do(http.MethodGet, "/feed?scope=following", s.carol, nil)
	s.Empty(s.decode(w)["threads"])
}

func (s *RouterTestSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("up", s.decode(w)["status"])
}
