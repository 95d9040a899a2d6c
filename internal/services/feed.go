package services

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/metrics"
	"pinboard/internal/models"
	"pinboard/internal/utils"

	"gorm.io/gorm"
)

type SortMode string

const (
	SortNew       SortMode = "new"
	SortTop       SortMode = "top"
	SortActive    SortMode = "active"
	SortDiscussed SortMode = "discussed"
	SortHot       SortMode = "hot"
)

// ParseSortMode 未知或为空时按最新排序
func ParseSortMode(s string) SortMode {
	switch mode := SortMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case SortNew, SortTop, SortActive, SortDiscussed, SortHot:
		return mode
	}
	return SortNew
}

type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeFollowing Scope = "following"
)

func ParseScope(s string) Scope {
	if Scope(strings.ToLower(s)) == ScopeFollowing {
		return ScopeFollowing
	}
	return ScopeGlobal
}

type FeedAuthor struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// FeedItem is a thread with everything the ranker needs, computed at read time.
type FeedItem struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Excerpt          string     `json:"excerpt"`
	Board            string     `json:"board"`
	Author           FeedAuthor `json:"author"`
	CreatedAt        time.Time  `json:"createdAt"`
	Upvotes          int64      `json:"upvotes"`
	Downvotes        int64      `json:"downvotes"`
	Score            int64      `json:"score"`
	ViewerVote       int        `json:"viewerVote"`
	ResponseCount    int64      `json:"responseCount"`
	LatestActivityAt time.Time  `json:"latestActivityAt"`
	Hotness          float64    `json:"-"`
}

// RankThreads sorts items in place. Every mode falls back to newest first,
// then to the higher ID, so equal keys keep a stable order.
func RankThreads(items []FeedItem, mode SortMode) {
	newer := func(a, b FeedItem) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}

	var less func(a, b FeedItem) bool
	switch mode {
	case SortTop:
		less = func(a, b FeedItem) bool {
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return newer(a, b)
		}
	case SortActive:
		less = func(a, b FeedItem) bool {
			if !a.LatestActivityAt.Equal(b.LatestActivityAt) {
				return a.LatestActivityAt.After(b.LatestActivityAt)
			}
			return newer(a, b)
		}
	case SortDiscussed:
		less = func(a, b FeedItem) bool {
			if a.ResponseCount != b.ResponseCount {
				return a.ResponseCount > b.ResponseCount
			}
			return newer(a, b)
		}
	case SortHot:
		less = func(a, b FeedItem) bool {
			if a.Hotness != b.Hotness {
				return a.Hotness > b.Hotness
			}
			return newer(a, b)
		}
	default:
		less = newer
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

type FeedQuery struct {
	Scope     Scope
	Sort      SortMode
	Search    string
	BoardSlug string
	ViewerID  uint
	Limit     int
}

const (
	defaultFeedLimit = 30
	maxFeedLimit     = 100
)

type FeedService struct {
	db     *gorm.DB
	scores *ScoreService
	boards *BoardDirectory
	now    func() time.Time
}

func NewFeedService(db *gorm.DB, scores *ScoreService, boards *BoardDirectory) *FeedService {
	return &FeedService{db: db, scores: scores, boards: boards, now: time.Now}
}

// Load builds and ranks a feed for the viewer. Every thread in scope takes
// part in ranking; only the returned page is hydrated.
func (s *FeedService) Load(ctx context.Context, q FeedQuery) ([]FeedItem, error) {
	start := time.Now()
	defer func() {
		metrics.Get().FeedGenerationTime.WithLabelValues(string(q.Scope), string(q.Sort)).Observe(time.Since(start).Seconds())
	}()

	if q.Scope == ScopeFollowing && q.ViewerID == 0 {
		return []FeedItem{}, nil
	}

	var boardID uint
	if q.BoardSlug != "" {
		board, err := s.boards.BySlug(ctx, nil, q.BoardSlug)
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return []FeedItem{}, nil
		}
		if err != nil {
			return nil, err
		}
		boardID = board.ID
	}
	scoped := func() *gorm.DB { return s.scopedThreads(ctx, q, boardID) }

	items, err := s.rankingRows(ctx, scoped, q.Sort)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []FeedItem{}, nil
	}

	RankThreads(items, q.Sort)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return s.hydrate(ctx, items, q.ViewerID)
}

// scopedThreads 按关注/搜索/版块过滤后的帖子
func (s *FeedService) scopedThreads(ctx context.Context, q FeedQuery, boardID uint) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Thread{})
	if q.Scope == ScopeFollowing {
		following := s.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", q.ViewerID)
		query = query.Where("threads.user_id IN (?)", following)
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := utils.ContainsPattern(term)
		query = query.Where("LOWER(threads.title) LIKE ? ESCAPE ? OR LOWER(threads.body) LIKE ? ESCAPE ?",
			like, utils.LikeEscape, like, utils.LikeEscape)
	}
	if boardID != 0 {
		query = query.Where("threads.board_id = ?", boardID)
	}
	return query
}

// rankingRows 只取排序需要的列：票数与回复数在 SQL 中汇总
func (s *FeedService) rankingRows(ctx context.Context, scoped func() *gorm.DB, mode SortMode) ([]FeedItem, error) {
	type rankRow struct {
		ID            uint
		CreatedAt     time.Time
		Upvotes       int64
		Downvotes     int64
		ResponseCount int64
	}

	votes := s.db.Model(&models.Vote{}).
		Select("entity_id, "+tallySelect).
		Where("entity_type = ?", models.EntityThread).
		Group("entity_id")
	responses := s.db.Model(&models.Response{}).
		Select("thread_id, COUNT(*) AS response_count").
		Group("thread_id")

	var rows []rankRow
	err := scoped().
		Select("threads.id, threads.created_at, "+
			"COALESCE(v.upvotes, 0) AS upvotes, COALESCE(v.downvotes, 0) AS downvotes, "+
			"COALESCE(r.response_count, 0) AS response_count").
		Joins("LEFT JOIN (?) AS v ON v.entity_id = threads.id", votes).
		Joins("LEFT JOIN (?) AS r ON r.thread_id = threads.id", responses).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Persistence("load feed", err)
	}

	var latest map[uint]time.Time
	if mode == SortActive && len(rows) > 0 {
		if _, latest, err = s.responseActivity(ctx, scoped().Select("threads.id")); err != nil {
			return nil, err
		}
	}

	now := s.now()
	items := make([]FeedItem, len(rows))
	for i, r := range rows {
		activity := r.CreatedAt
		if ts, ok := latest[r.ID]; ok && ts.After(activity) {
			activity = ts
		}
		items[i] = FeedItem{
			ID:               r.ID,
			CreatedAt:        r.CreatedAt,
			Upvotes:          r.Upvotes,
			Downvotes:        r.Downvotes,
			Score:            r.Upvotes - r.Downvotes,
			ResponseCount:    r.ResponseCount,
			LatestActivityAt: activity,
			Hotness:          utils.HotScore(r.CreatedAt, now, r.Upvotes, r.Downvotes, r.ResponseCount),
		}
	}
	return items, nil
}

// hydrate 为当前页补全帖子内容、作者和当前用户的投票
func (s *FeedService) hydrate(ctx context.Context, page []FeedItem, viewerID uint) ([]FeedItem, error) {
	ids := make([]uint, len(page))
	for i, it := range page {
		ids[i] = it.ID
	}

	var threads []models.Thread
	if err := s.db.WithContext(ctx).Preload("User").Preload("Board").Where("id IN ?", ids).Find(&threads).Error; err != nil {
		return nil, apperrors.Persistence("load feed threads", err)
	}
	byID := make(map[uint]*models.Thread, len(threads))
	for i := range threads {
		byID[threads[i].ID] = &threads[i]
	}

	_, latest, err := s.responseActivity(ctx, ids)
	if err != nil {
		return nil, err
	}
	aggs, err := s.scores.AggregateMany(ctx, models.EntityThread, ids, viewerID)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(page))
	for _, it := range page {
		t, ok := byID[it.ID]
		if !ok {
			continue // 排序后被删除
		}
		it.Title = t.Title
		it.Excerpt = utils.PlainExcerpt(t.Body, 200)
		it.Board = t.Board.Slug
		it.Author = FeedAuthor{ID: t.User.ID, Name: t.User.Name, Handle: t.User.Handle}
		it.ViewerVote = aggs[it.ID].ViewerVote
		if ts, ok := latest[it.ID]; ok && ts.After(it.LatestActivityAt) {
			it.LatestActivityAt = ts
		}
		items = append(items, it)
	}
	return items, nil
}

// responseActivity 回复数与最近回复时间，时间在内存中取最大值以兼容各数据库的时间类型。
// threads 可以是 ID 切片或子查询
func (s *FeedService) responseActivity(ctx context.Context, threads any) (map[uint]int64, map[uint]time.Time, error) {
	type row struct {
		ThreadID  uint
		CreatedAt time.Time
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Response{}).
		Select("thread_id, created_at").
		Where("thread_id IN (?)", threads).
		Scan(&rows).Error
	if err != nil {
		return nil, nil, apperrors.Persistence("load response activity", err)
	}

	counts := make(map[uint]int64)
	latest := make(map[uint]time.Time)
	for _, r := range rows {
		counts[r.ThreadID]++
		if r.CreatedAt.After(latest[r.ThreadID]) {
			latest[r.ThreadID] = r.CreatedAt
		}
	}
	return counts, latest, nil
}
