package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/metrics"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

// RateLimitNote is attached to a harvest when paging stalled. It is a
// guess: the feed never says it is rate limiting.
const RateLimitNote = "a next cursor was returned with an empty page; likely rate limited or paging was blocked, stopped paging"

// Options controls how far and how politely replies are paged.
type Options struct {
	MaxPages int
	Delay    time.Duration
	// Bulk hands pagination to the feed client in a single call.
	Bulk bool
}

// Harvester collects the replies of a post through the feed client
type Harvester struct {
	client  feed.Client
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a new harvester
func New(client feed.Client, opts Options, logger *zap.Logger, m *metrics.Metrics) *Harvester {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Harvester{client: client, opts: opts, logger: logger.Named("scraper"), metrics: m}
}

// Harvest pages through the replies of postID. Any feed error aborts the
// harvest and is returned as is.
func (h *Harvester) Harvest(ctx context.Context, postID string) (*types.Harvest, error) {
	if h.opts.Bulk {
		return h.harvestBulk(ctx, postID)
	}

	limit := rate.Inf
	if h.opts.Delay > 0 {
		limit = rate.Every(h.opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	acc := newAccumulator(postID)
	res := &types.Harvest{PostID: postID}
	cursor := ""

	for res.Pages < h.opts.MaxPages {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting between reply pages: %w", err)
		}

		page, err := h.client.ListReplies(ctx, postID, feed.ReplyQuery{Cursor: cursor, MaxPages: 1})
		if err != nil {
			return nil, err
		}
		res.Pages++
		h.metrics.ReplyPages.Inc()

		added := acc.add(page.Replies)
		res.NextCursor = page.NextCursor

		h.logger.Debug("reply page",
			zap.String("post_id", postID),
			zap.Int("page", res.Pages),
			zap.Int("new", added),
			zap.Bool("has_cursor", page.NextCursor != ""))

		if page.NextCursor == "" {
			break
		}
		if added == 0 {
			h.stalled(res)
			break
		}
		cursor = page.NextCursor
	}

	res.Replies = acc.replies
	h.metrics.RepliesFetched.Add(float64(len(res.Replies)))
	return res, nil
}

// harvestBulk issues one call and lets the client paginate.
func (h *Harvester) harvestBulk(ctx context.Context, postID string) (*types.Harvest, error) {
	page, err := h.client.ListReplies(ctx, postID, feed.ReplyQuery{
		MaxPages: h.opts.MaxPages,
		All:      true,
		Delay:    h.opts.Delay,
	})
	if err != nil {
		return nil, err
	}
	h.metrics.ReplyPages.Inc()

	acc := newAccumulator(postID)
	acc.add(page.Replies)

	res := &types.Harvest{
		PostID:     postID,
		Replies:    acc.replies,
		Pages:      1,
		NextCursor: page.NextCursor,
	}
	if page.NextCursor != "" && len(page.Replies) == 0 {
		h.stalled(res)
	}
	h.metrics.RepliesFetched.Add(float64(len(res.Replies)))
	return res, nil
}

func (h *Harvester) stalled(res *types.Harvest) {
	res.RateLimitNote = RateLimitNote
	h.metrics.RateLimitStalls.Inc()
	h.logger.Warn("reply paging stalled",
		zap.String("post_id", res.PostID),
		zap.Int("pages", res.Pages),
		zap.String("cursor", res.NextCursor))
}

// accumulator keeps the first occurrence of each reply id in arrival order.
type accumulator struct {
	rootID  string
	seen    map[string]bool
	replies []types.Reply
}

func newAccumulator(rootID string) *accumulator {
	return &accumulator{rootID: rootID, seen: make(map[string]bool)}
}

// add returns how many replies were new.
func (a *accumulator) add(replies []types.Reply) int {
	added := 0
	for _, r := range replies {
		if r.ID == "" || r.ID == a.rootID || a.seen[r.ID] {
			continue
		}
		a.seen[r.ID] = true
		a.replies = append(a.replies, r)
		added++
	}
	return added
}
