package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeline_Shapes(t *testing.T) {
	list := `[{"id":"101","text":"hello","createdAt":"Wed Oct 15 08:00:00 +0000 2025","replyCount":4,"author":{"username":"1024EX"}}]`
	wrapped := `{"tweets":[{"id":101,"text":"hello","createdAt":"2025-10-15T08:00:00.000Z","replyCount":"4"}]}`

	for name, body := range map[string]string{"bare list": list, "wrapped": wrapped} {
		t.Run(name, func(t *testing.T) {
			posts, err := ParseTimeline([]byte(body))
			require.NoError(t, err)
			require.Len(t, posts, 1)

			p := posts[0]
			assert.Equal(t, "101", p.ID)
			assert.Equal(t, "hello", p.Text)
			assert.Equal(t, time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC), p.CreatedAt.UTC())
			require.NotNil(t, p.Metrics.Replies)
			assert.Equal(t, 4, *p.Metrics.Replies)
			assert.Nil(t, p.Metrics.Likes)
		})
	}
}

func TestParseTimeline_RejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{
		``,
		`"just a string"`,
		`{"data":[]}`,
		`{"tweets":null}`,
		`[{"id":`,
		`rate limited, try later`,
	} {
		_, err := ParseTimeline([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestParseTimeline_BadTimestampLeavesZero(t *testing.T) {
	posts, err := ParseTimeline([]byte(`[{"id":"1","createdAt":"yesterday"}]`))
	require.NoError(t, err)
	assert.True(t, posts[0].CreatedAt.IsZero())
	assert.Equal(t, "yesterday", posts[0].CreatedAtRaw)
}

func TestParseReplies(t *testing.T) {
	page, err := ParseReplies([]byte(`{"tweets":[{"id":"r1","text":"nice","likeCount":3,"author":{"username":"a"}}],"nextCursor":"abc"}`))
	require.NoError(t, err)
	require.Len(t, page.Replies, 1)
	assert.Equal(t, "r1", page.Replies[0].ID)
	assert.Equal(t, "a", page.Replies[0].Author.Username)
	assert.Equal(t, 3, *page.Replies[0].Likes)
	assert.Equal(t, "abc", page.NextCursor)

	page, err = ParseReplies([]byte(`{"tweets":[]}`))
	require.NoError(t, err)
	assert.Empty(t, page.Replies)
	assert.Empty(t, page.NextCursor)

	for _, body := range []string{`[]`, `{"nextCursor":"x"}`, `{"tweets":{}}`} {
		_, err := ParseReplies([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestParseRead(t *testing.T) {
	body := `{"id":"9","_raw":{"views":{"count":"15321","state":"EnabledWithCount"},
		"legacy":{"reply_count":12,"retweet_count":3,"quote_count":1,"favorite_count":40,"bookmark_count":2}}}`
	d, err := ParseRead([]byte(body))
	require.NoError(t, err)

	require.NotNil(t, d.Views)
	assert.Equal(t, 15321, *d.Views)
	assert.Equal(t, "EnabledWithCount", d.ViewsState)
	assert.Equal(t, 12, *d.Legacy.Replies)
	assert.Equal(t, 40, *d.Legacy.Likes)
	assert.Equal(t, 2, *d.Legacy.Bookmarks)

	d, err = ParseRead([]byte(`{"_raw":{}}`))
	require.NoError(t, err)
	assert.Nil(t, d.Views)
	assert.Nil(t, d.Legacy.Replies)

	_, err = ParseRead([]byte(`{"id":"9"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"Wed Oct 15 08:00:00 +0000 2025",
		"2025-10-15T08:00:00Z",
		"2025-10-15T08:00:00.000Z",
		"2025-10-15T16:00:00+08:00",
	} {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, ts.Equal(time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)), s)
	}

	_, err := ParseTimestamp("")
	assert.Error(t, err)
}
