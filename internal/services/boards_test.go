package services

import (
	"context"
	"testing"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardDirectoryCachesBySlug(t *testing.T) {
	gdb := setupTestDB(t)
	board := &models.Board{Slug: "tech", Name: "Tech"}
	require.NoError(t, gdb.Create(board).Error)

	dir := NewBoardDirectory(gdb)
	ctx := context.Background()

	got, err := dir.BySlug(ctx, nil, " TECH ")
	require.NoError(t, err)
	assert.Equal(t, board.ID, got.ID)

	require.NoError(t, gdb.Delete(&models.Board{}, board.ID).Error)
	got, err = dir.BySlug(ctx, nil, "tech")
	require.NoError(t, err, "served from cache")
	assert.Equal(t, "Tech", got.Name)

	dir.Invalidate("Tech")
	_, err = dir.BySlug(ctx, nil, "tech")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestFeedUnknownBoardIsEmpty(t *testing.T) {
	svc, gdb := setupServices(t)
	require.NoError(t, gdb.Create(&models.Board{Slug: "general", Name: "General"}).Error)
	alice := createUser(t, gdb, "alice", "Alice")
	createThread(t, gdb, alice, "hello", "", time.Now())

	items, err := svc.Feed.Load(context.Background(), FeedQuery{BoardSlug: "missing"})
	require.NoError(t, err)
	assert.Empty(t, items)
}
