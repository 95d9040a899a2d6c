package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"pinboard/internal/config"
	apperrors "pinboard/internal/errors"
	"pinboard/internal/models"

	"gorm.io/gorm"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// Mention is a handle in text that matched a registered user.
type Mention struct {
	Handle string
	UserID uint
}

// MentionResolver finds @handles in free text and maps them to users.
type MentionResolver struct {
	db     *gorm.DB
	cfg    config.MentionConfig
	legacy map[string]struct{}
}

func NewMentionResolver(db *gorm.DB, cfg config.MentionConfig) *MentionResolver {
	legacy := make(map[string]struct{}, len(cfg.LegacyHandles))
	for _, h := range cfg.LegacyHandles {
		legacy[strings.ToLower(h)] = struct{}{}
	}
	return &MentionResolver{db: db, cfg: cfg, legacy: legacy}
}

// ExtractHandles returns the distinct, lowercased handles mentioned in text
// in order of first appearance. An @ glued to a preceding word character
// (user@example.com) is not a mention. Runs longer than the maximum length
// are rejected, not truncated.
func (r *MentionResolver) ExtractHandles(text string) []string {
	var handles []string
	seen := make(map[string]struct{})

	for _, m := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:m[0]])
			if isHandleRune(prev) {
				continue
			}
		}
		handle := strings.ToLower(text[m[2]:m[3]])
		if !r.validHandle(handle) {
			continue
		}
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	return handles
}

func (r *MentionResolver) validHandle(handle string) bool {
	n := len(handle)
	if n > r.cfg.MaxLength {
		return false
	}
	if n >= r.cfg.MinLength {
		return true
	}
	if _, ok := r.legacy[handle]; ok {
		return n >= r.cfg.LegacyMinLength
	}
	return false
}

func isHandleRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// Resolve maps mentioned handles to users with one directory lookup.
// Handles without a user are dropped. Pass the surrounding transaction as tx
// when resolving inside a write; nil uses the resolver's own connection.
func (r *MentionResolver) Resolve(ctx context.Context, tx *gorm.DB, text string) ([]Mention, error) {
	handles := r.ExtractHandles(text)
	if len(handles) == 0 {
		return nil, nil
	}
	if tx == nil {
		tx = r.db
	}

	var users []models.User
	err := tx.WithContext(ctx).Select("id", "handle").Where("handle IN ?", handles).Find(&users).Error
	if err != nil {
		return nil, apperrors.Persistence("resolve mentions", err)
	}

	byHandle := make(map[string]uint, len(users))
	for _, u := range users {
		byHandle[u.Handle] = u.ID
	}

	mentions := make([]Mention, 0, len(users))
	for _, h := range handles {
		if id, ok := byHandle[h]; ok {
			mentions = append(mentions, Mention{Handle: h, UserID: id})
		}
	}
	return mentions, nil
}

// ResolveUserIDs is Resolve as a set of user ids.
func (r *MentionResolver) ResolveUserIDs(ctx context.Context, tx *gorm.DB, text string) (map[uint]struct{}, error) {
	mentions, err := r.Resolve(ctx, tx, text)
	if err != nil {
		return nil, err
	}
	ids := make(map[uint]struct{}, len(mentions))
	for _, m := range mentions {
		ids[m.UserID] = struct{}{}
	}
	return ids, nil
}
