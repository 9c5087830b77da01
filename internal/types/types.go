package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Author identifies the account behind a post or reply
type Author struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Metrics holds engagement counters. A nil field means the feed did not report it.
type Metrics struct {
	Replies   *int `json:"replies,omitempty"`
	Retweets  *int `json:"retweets,omitempty"`
	Quotes    *int `json:"quotes,omitempty"`
	Likes     *int `json:"likes,omitempty"`
	Bookmarks *int `json:"bookmarks,omitempty"`
	Views     *int `json:"views,omitempty"`
}

// Post represents a post from the monitored account's timeline
type Post struct {
	ID             string    `json:"id"`
	Author         Author    `json:"author"`
	CreatedAt      time.Time `json:"created_at"`
	CreatedAtRaw   string    `json:"created_at_raw"`
	Text           string    `json:"text"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Metrics        Metrics   `json:"metrics"`
}

// PostDetail is the extended form of a post returned by a single-post read.
type PostDetail struct {
	Legacy     Metrics `json:"legacy"`
	Views      *int    `json:"views,omitempty"`
	ViewsState string  `json:"views_state,omitempty"`
}

// Reply represents a response addressed to a Post
type Reply struct {
	ID       string `json:"id"`
	Author   Author `json:"author"`
	Text     string `json:"text"`
	Likes    *int   `json:"likes,omitempty"`
	Retweets *int   `json:"retweets,omitempty"`
	Quotes   *int   `json:"quotes,omitempty"`
}

// ReplyPage is one page of a paginated reply listing.
type ReplyPage struct {
	Replies    []Reply `json:"replies"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Harvest is the accumulated result of paging through a post's replies
type Harvest struct {
	PostID     string  `json:"post_id"`
	Replies    []Reply `json:"replies"`
	Pages      int     `json:"pages"`
	NextCursor string  `json:"next_cursor,omitempty"`
	// RateLimitNote is set when a page came back with a cursor but no new replies.
	// It is a heuristic, not a confirmed signal from the feed.
	RateLimitNote string `json:"rate_limit_note,omitempty"`
}

// Fetched returns the number of unique replies collected.
func (h *Harvest) Fetched() int {
	return len(h.Replies)
}

// Coverage returns fetched/advertised capped at 1. ok is false when the
// advertised count is unknown or zero.
func (h *Harvest) Coverage(advertised *int) (ratio float64, ok bool) {
	if advertised == nil || *advertised <= 0 {
		return 0, false
	}
	ratio = float64(h.Fetched()) / float64(*advertised)
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}

// ProcessingRecord marks a post as analyzed. Once written the post is never harvested again.
type ProcessingRecord struct {
	ProcessedAt   time.Time `json:"processedAt"`
	CreatedAt     string    `json:"createdAt"`
	ReplyCount    *int      `json:"replyCount"`
	Fetched       int       `json:"fetched"`
	URL           string    `json:"url"`
	Views         *int      `json:"views"`
	QuoteCount    *int      `json:"quoteCount"`
	BookmarkCount *int      `json:"bookmarkCount"`
}

// UnmarshalJSON accepts counters written as numbers or numeric strings, since
// older state files carry views as "12345". Unparseable counters become nil.
func (r *ProcessingRecord) UnmarshalJSON(b []byte) error {
	type plain ProcessingRecord
	var aux struct {
		plain
		ReplyCount    json.RawMessage `json:"replyCount"`
		Views         json.RawMessage `json:"views"`
		QuoteCount    json.RawMessage `json:"quoteCount"`
		BookmarkCount json.RawMessage `json:"bookmarkCount"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*r = ProcessingRecord(aux.plain)
	for _, f := range []struct {
		dst **int
		raw json.RawMessage
	}{
		{&r.ReplyCount, aux.ReplyCount},
		{&r.Views, aux.Views},
		{&r.QuoteCount, aux.QuoteCount},
		{&r.BookmarkCount, aux.BookmarkCount},
	} {
		v, err := lenientCount(f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func lenientCount(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, nil
		}
		return IntPtr(int(f)), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("counter %s: %w", raw, err)
	}
	return IntPtr(int(f)), nil
}

// PostURL returns the canonical URL of a post by the given handle.
func PostURL(handle, id string) string {
	return fmt.Sprintf("https://x.com/%s/status/%s", handle, id)
}

// ReplyURL returns a handle-independent URL for a reply.
func ReplyURL(id string) string {
	return "https://x.com/i/web/status/" + id
}

// IntPtr is a small helper for building optional counters.
func IntPtr(v int) *int {
	return &v
}

// FirstKnown returns the first non-nil counter.
func FirstKnown(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
