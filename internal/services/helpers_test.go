package services

import (
	"testing"
	"time"

	"pinboard/internal/config"
	"pinboard/internal/db"
	"pinboard/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// :memory: is per connection
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func testConfig() *config.Config {
	return &config.Config{
		Mentions:                config.DefaultMentions(),
		MessageMaxLength:        2000,
		NotificationListDefault: 50,
		NotificationListMax:     100,
	}
}

func setupServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	gdb := setupTestDB(t)
	return New(gdb, testConfig()), gdb
}

func createUser(t *testing.T, gdb *gorm.DB, handle, name string) *models.User {
	t.Helper()
	u := &models.User{Handle: handle, Name: name}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func createThread(t *testing.T, gdb *gorm.DB, author *models.User, title, body string, createdAt time.Time) *models.Thread {
	t.Helper()
	th := &models.Thread{UserID: author.ID, BoardID: 1, Title: title, Body: body, CreatedAt: createdAt}
	require.NoError(t, gdb.Omit("User", "Board").Create(th).Error)
	return th
}

func createResponse(t *testing.T, gdb *gorm.DB, author *models.User, thread *models.Thread, body string, createdAt time.Time) *models.Response {
	t.Helper()
	r := &models.Response{ThreadID: thread.ID, UserID: author.ID, Body: body, CreatedAt: createdAt}
	require.NoError(t, gdb.Omit("User", "Thread").Create(r).Error)
	return r
}

func notificationsFor(t *testing.T, gdb *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var list []models.Notification
	require.NoError(t, gdb.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error)
	return list
}

func allNotifications(t *testing.T, gdb *gorm.DB) []models.Notification {
	t.Helper()
	var list []models.Notification
	require.NoError(t, gdb.Order("id ASC").Find(&list).Error)
	return list
}
