package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// rawTweet is a post or reply as printed by `bird ... --json`.
type rawTweet struct {
	ID             flexString `json:"id"`
	Text           string     `json:"text"`
	CreatedAt      string     `json:"createdAt"`
	ConversationID flexString `json:"conversationId"`
	ReplyCount     *flexInt   `json:"replyCount"`
	RetweetCount   *flexInt   `json:"retweetCount"`
	QuoteCount     *flexInt   `json:"quoteCount"`
	LikeCount      *flexInt   `json:"likeCount"`
	BookmarkCount  *flexInt   `json:"bookmarkCount"`
	Author         *struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"author"`
}

// rawReplies is the only accepted shape for a replies listing.
type rawReplies struct {
	Tweets     *[]rawTweet `json:"tweets"`
	NextCursor *string     `json:"nextCursor"`
}

// rawRead is the --json-full shape of a single post.
type rawRead struct {
	Raw *struct {
		Views *struct {
			Count *flexInt `json:"count"`
			State string   `json:"state"`
		} `json:"views"`
		Legacy *struct {
			ReplyCount    *flexInt `json:"reply_count"`
			RetweetCount  *flexInt `json:"retweet_count"`
			QuoteCount    *flexInt `json:"quote_count"`
			FavoriteCount *flexInt `json:"favorite_count"`
			BookmarkCount *flexInt `json:"bookmark_count"`
		} `json:"legacy"`
	} `json:"_raw"`
}

// timelineShape tags the two accepted timeline encodings.
type timelineShape int

const (
	shapeUnknown timelineShape = iota
	shapeList
	shapeWrapped
)

// ParseTimeline decodes a timeline listing, either a bare JSON array or an
// object with a "tweets" array. Anything else is ErrMalformed.
func ParseTimeline(data []byte) ([]types.Post, error) {
	var tweets []rawTweet

	switch sniffTimeline(data) {
	case shapeList:
		if err := json.Unmarshal(data, &tweets); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case shapeWrapped:
		var wrapped struct {
			Tweets *[]rawTweet `json:"tweets"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if wrapped.Tweets == nil {
			return nil, fmt.Errorf("%w: object without tweets array", ErrMalformed)
		}
		tweets = *wrapped.Tweets
	default:
		return nil, fmt.Errorf("%w: expected array or {tweets:[...]}", ErrMalformed)
	}

	posts := make([]types.Post, 0, len(tweets))
	for _, t := range tweets {
		posts = append(posts, t.toPost())
	}
	return posts, nil
}

func sniffTimeline(data []byte) timelineShape {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return shapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return shapeList
	case '{':
		return shapeWrapped
	}
	return shapeUnknown
}

// ParseReplies decodes a `{tweets:[...], nextCursor}` replies listing.
func ParseReplies(data []byte) (*types.ReplyPage, error) {
	if sniffTimeline(data) != shapeWrapped {
		return nil, fmt.Errorf("%w: expected {tweets:[...], nextCursor}", ErrMalformed)
	}
	var raw rawReplies
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Tweets == nil {
		return nil, fmt.Errorf("%w: replies without tweets array", ErrMalformed)
	}

	page := &types.ReplyPage{Replies: make([]types.Reply, 0, len(*raw.Tweets))}
	for _, t := range *raw.Tweets {
		page.Replies = append(page.Replies, t.toReply())
	}
	if raw.NextCursor != nil {
		page.NextCursor = *raw.NextCursor
	}
	return page, nil
}

// ParseRead decodes a --json-full single post. The _raw object is required.
func ParseRead(data []byte) (*types.PostDetail, error) {
	if sniffTimeline(data) != shapeWrapped {
		return nil, fmt.Errorf("%w: expected object with _raw", ErrMalformed)
	}
	var raw rawRead
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Raw == nil {
		return nil, fmt.Errorf("%w: missing _raw", ErrMalformed)
	}

	detail := &types.PostDetail{}
	if v := raw.Raw.Views; v != nil {
		detail.Views = v.Count.ptr()
		detail.ViewsState = v.State
	}
	if l := raw.Raw.Legacy; l != nil {
		detail.Legacy = types.Metrics{
			Replies:   l.ReplyCount.ptr(),
			Retweets:  l.RetweetCount.ptr(),
			Quotes:    l.QuoteCount.ptr(),
			Likes:     l.FavoriteCount.ptr(),
			Bookmarks: l.BookmarkCount.ptr(),
		}
	}
	detail.Legacy.Views = detail.Views
	return detail, nil
}

func (t rawTweet) author() types.Author {
	if t.Author == nil {
		return types.Author{}
	}
	return types.Author{Username: t.Author.Username, Name: t.Author.Name}
}

func (t rawTweet) toPost() types.Post {
	p := types.Post{
		ID:             string(t.ID),
		Author:         t.author(),
		CreatedAtRaw:   t.CreatedAt,
		Text:           t.Text,
		ConversationID: string(t.ConversationID),
		Metrics: types.Metrics{
			Replies:   t.ReplyCount.ptr(),
			Retweets:  t.RetweetCount.ptr(),
			Quotes:    t.QuoteCount.ptr(),
			Likes:     t.LikeCount.ptr(),
			Bookmarks: t.BookmarkCount.ptr(),
		},
	}
	if ts, err := ParseTimestamp(t.CreatedAt); err == nil {
		p.CreatedAt = ts
	}
	return p
}

func (t rawTweet) toReply() types.Reply {
	return types.Reply{
		ID:       string(t.ID),
		Author:   t.author(),
		Text:     t.Text,
		Likes:    t.LikeCount.ptr(),
		Retweets: t.RetweetCount.ptr(),
		Quotes:   t.QuoteCount.ptr(),
	}
}

var timestampLayouts = []string{
	time.RubyDate, // X's legacy created_at: "Wed Oct 10 20:19:24 +0000 2018"
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
}

// ParseTimestamp accepts the timestamp formats bird has been seen to emit.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string ("1234" view counts).
type flexInt struct {
	v     int
	valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		// Unparseable strings stay unknown rather than failing the whole listing.
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f.v = int(n)
		f.valid = true
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a count: %s", b)
	}
	f.v = int(n)
	f.valid = true
	return nil
}

func (f *flexInt) ptr() *int {
	if f == nil || !f.valid {
		return nil
	}
	return types.IntPtr(f.v)
}
