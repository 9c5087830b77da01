// Package feedtest provides an in-memory feed.Client for tests.
package feedtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Fake implements feed.Client from canned data and records every call.
type Fake struct {
	mu sync.Mutex

	IdentityErr error
	Timeline    []types.Post
	TimelineErr error
	Details     map[string]*types.PostDetail
	ReadErr     map[string]error
	// Pages holds reply pages per post id, served in order regardless of cursor.
	Pages      map[string][]types.ReplyPage
	RepliesErr map[string]error

	Calls        []string
	ReplyQueries []feed.ReplyQuery
	served       map[string]int
}

var _ feed.Client = (*Fake)(nil)

// New returns an empty, authenticated fake.
func New() *Fake {
	return &Fake{
		Details:    map[string]*types.PostDetail{},
		ReadErr:    map[string]error{},
		Pages:      map[string][]types.ReplyPage{},
		RepliesErr: map[string]error{},
		served:     map[string]int{},
	}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *Fake) CheckIdentity(ctx context.Context) error {
	f.record("whoami")
	return f.IdentityErr
}

func (f *Fake) ListRecentPosts(ctx context.Context, handle string, n int) ([]types.Post, error) {
	f.record(fmt.Sprintf("user-tweets %s %d", handle, n))
	if f.TimelineErr != nil {
		return nil, f.TimelineErr
	}
	if n < len(f.Timeline) {
		return f.Timeline[:n], nil
	}
	return f.Timeline, nil
}

func (f *Fake) ReadPost(ctx context.Context, id string) (*types.PostDetail, error) {
	f.record("read " + id)
	if err := f.ReadErr[id]; err != nil {
		return nil, err
	}
	if d, ok := f.Details[id]; ok {
		return d, nil
	}
	return &types.PostDetail{}, nil
}

func (f *Fake) ListReplies(ctx context.Context, postID string, q feed.ReplyQuery) (*types.ReplyPage, error) {
	f.record("replies " + postID)
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ReplyQueries = append(f.ReplyQueries, q)
	if err := f.RepliesErr[postID]; err != nil {
		return nil, err
	}
	pages := f.Pages[postID]
	i := f.served[postID]
	f.served[postID] = i + 1
	if i >= len(pages) {
		return &types.ReplyPage{}, nil
	}
	page := pages[i]
	return &page, nil
}

// CallCount returns how many recorded calls start with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Replies builds n replies with ids "<prefix>1".."<prefix>n" from distinct authors.
func Replies(prefix string, texts ...string) []types.Reply {
	out := make([]types.Reply, 0, len(texts))
	for i, text := range texts {
		out = append(out, types.Reply{
			ID:     fmt.Sprintf("%s%d", prefix, i+1),
			Author: types.Author{Username: fmt.Sprintf("user_%s%d", prefix, i+1)},
			Text:   text,
		})
	}
	return out
}
