package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/feed/feedtest"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

func replyIDs(h *types.Harvest) []string {
	out := make([]string, 0, len(h.Replies))
	for _, r := range h.Replies {
		out = append(out, r.ID)
	}
	return out
}

func TestHarvest_PagesUntilNoCursor(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: feedtest.Replies("a", "one", "two"), NextCursor: "c1"},
		{Replies: feedtest.Replies("b", "three"), NextCursor: "c2"},
		{Replies: feedtest.Replies("c", "four")},
	}
	m := metrics.Nop()

	h := New(fake, Options{MaxPages: 10}, zap.NewNop(), m)
	res, err := h.Harvest(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "b1", "c1"}, replyIDs(res))
	assert.Equal(t, 3, res.Pages)
	assert.Empty(t, res.NextCursor)
	assert.Empty(t, res.RateLimitNote)

	require.Len(t, fake.ReplyQueries, 3)
	assert.Equal(t, "", fake.ReplyQueries[0].Cursor)
	assert.Equal(t, "c1", fake.ReplyQueries[1].Cursor)
	assert.Equal(t, "c2", fake.ReplyQueries[2].Cursor)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReplyPages))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RepliesFetched))
}

func TestHarvest_DedupsAndDropsRoot(t *testing.T) {
	fake := feedtest.New()
	first := feedtest.Replies("r", "x", "y")
	root := types.Reply{ID: "100", Text: "the post itself"}
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: append([]types.Reply{root}, first...), NextCursor: "c1"},
		{Replies: append(first[1:], feedtest.Replies("s", "z")...)},
	}

	res, err := New(fake, Options{MaxPages: 5}, zap.NewNop(), nil).Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "s1"}, replyIDs(res))
	assert.Equal(t, 3, res.Fetched())
	assert.Empty(t, res.RateLimitNote)
}

func TestHarvest_EmptyPageWithCursorIsSoftNote(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{{Replies: []types.Reply{}, NextCursor: "abc"}}
	m := metrics.Nop()

	res, err := New(fake, Options{MaxPages: 50}, zap.NewNop(), m).Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, RateLimitNote, res.RateLimitNote)
	assert.Equal(t, "abc", res.NextCursor)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 0, res.Fetched())
	assert.Equal(t, 1, fake.CallCount("replies"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitStalls))
}

func TestHarvest_RepeatedPageStalls(t *testing.T) {
	fake := feedtest.New()
	same := feedtest.Replies("a", "one")
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: same, NextCursor: "c1"},
		{Replies: same, NextCursor: "c2"},
		{Replies: feedtest.Replies("b", "never reached")},
	}

	res, err := New(fake, Options{MaxPages: 10}, zap.NewNop(), nil).Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, RateLimitNote, res.RateLimitNote)
	assert.Equal(t, []string{"a1"}, replyIDs(res))
}

func TestHarvest_BudgetExhausted(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: feedtest.Replies("a", "1"), NextCursor: "c1"},
		{Replies: feedtest.Replies("b", "2"), NextCursor: "c2"},
		{Replies: feedtest.Replies("c", "3"), NextCursor: "c3"},
	}

	res, err := New(fake, Options{MaxPages: 2}, zap.NewNop(), nil).Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "c2", res.NextCursor)
	assert.Empty(t, res.RateLimitNote)
	assert.Equal(t, 2, fake.CallCount("replies"))
}

func TestHarvest_DelayBetweenPages(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: feedtest.Replies("a", "1"), NextCursor: "c1"},
		{Replies: feedtest.Replies("b", "2"), NextCursor: "c2"},
		{Replies: feedtest.Replies("c", "3")},
	}

	start := time.Now()
	_, err := New(fake, Options{MaxPages: 5, Delay: 20 * time.Millisecond}, zap.NewNop(), nil).
		Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestHarvest_FeedErrorAborts(t *testing.T) {
	fake := feedtest.New()
	boom := &feed.Error{Op: feed.OpReplies, Target: "https://x.com/h/status/100", Err: feed.ErrCommand}
	fake.RepliesErr["100"] = boom

	res, err := New(fake, Options{MaxPages: 5}, zap.NewNop(), nil).Harvest(context.Background(), "100")
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, feed.ErrCommand))
}

func TestHarvest_CancelledContext(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: feedtest.Replies("a", "1"), NextCursor: "c1"},
		{Replies: feedtest.Replies("b", "2"), NextCursor: "c2"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fake, Options{MaxPages: 5, Delay: time.Hour}, zap.NewNop(), nil).Harvest(ctx, "100")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarvest_Bulk(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{
		{Replies: feedtest.Replies("a", "1", "2", "3"), NextCursor: "more"},
	}

	h := New(fake, Options{MaxPages: 50, Delay: 800 * time.Millisecond, Bulk: true}, zap.NewNop(), nil)
	res, err := h.Harvest(context.Background(), "100")
	require.NoError(t, err)

	require.Len(t, fake.ReplyQueries, 1)
	q := fake.ReplyQueries[0]
	assert.True(t, q.All)
	assert.Equal(t, 50, q.MaxPages)
	assert.Equal(t, 800*time.Millisecond, q.Delay)

	assert.Equal(t, 3, res.Fetched())
	assert.Equal(t, "more", res.NextCursor)
	assert.Empty(t, res.RateLimitNote)
}

func TestHarvest_BulkEmptyWithCursor(t *testing.T) {
	fake := feedtest.New()
	fake.Pages["100"] = []types.ReplyPage{{NextCursor: "abc"}}

	res, err := New(fake, Options{MaxPages: 50, Bulk: true}, zap.NewNop(), nil).Harvest(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, RateLimitNote, res.RateLimitNote)
}
