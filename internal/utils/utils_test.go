package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlainExcerptStripsMarkup(t *testing.T) {
	got := PlainExcerpt("**Hello** world\n\nsecond `para` & more", 0)
	assert.Equal(t, "Hello world second para & more", got)
}

func TestPlainExcerptTruncates(t *testing.T) {
	assert.Equal(t, "abcde…", PlainExcerpt("abcdefgh", 5))
	assert.Equal(t, "short", PlainExcerpt("short", 5))
	assert.Equal(t, "你好世界…", PlainExcerpt("你好世界你好", 4))
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("hi <img src=x onerror=alert(1)>")
	assert.NotContains(t, out, "onerror")
	assert.Contains(t, out, "<p>")
}

func TestHotScore(t *testing.T) {
	now := time.Now()
	assert.Zero(t, HotScore(now, now, 0, 0, 0))
	assert.Zero(t, HotScore(now, now, 0, 5, 0), "negative weight clamps to zero")

	fresh := HotScore(now.Add(-time.Hour), now, 10, 0, 2)
	stale := HotScore(now.Add(-48*time.Hour), now, 10, 0, 2)
	assert.Greater(t, fresh, stale)
	assert.Greater(t, HotScore(now, now, 10, 0, 0), HotScore(now, now, 5, 0, 0))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, ok := ParseID(bad)
		assert.False(t, ok, bad)
	}
	assert.True(t, ParseBoolFlag("1"))
	assert.True(t, ParseBoolFlag("true"))
	assert.False(t, ParseBoolFlag("0"))
}

func TestTTLCacheExpiry(t *testing.T) {
	c, err := NewTTLCache[string, int](2)
	assert.NoError(t, err)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1, time.Minute)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entries are evicted on read")
}

func TestTTLCacheEvictsOldest(t *testing.T) {
	c, err := NewTTLCache[string, int](2)
	assert.NoError(t, err)
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Set("c", 3, time.Hour)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%abc%", ContainsPattern("abc"))
	assert.Equal(t, `%a\_c%`, ContainsPattern("a_c"))
	assert.Equal(t, `%100\%%`, ContainsPattern("100%"))
	assert.Equal(t, `%c:\\tmp%`, ContainsPattern(`c:\tmp`))
}
