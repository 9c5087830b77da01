// Package feed talks to the external timeline client. The production client is
// the bird CLI run as a subprocess; tests use feedtest.Fake.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Client is the narrow capability set the pipeline needs from the feed.
type Client interface {
	CheckIdentity(ctx context.Context) error
	ListRecentPosts(ctx context.Context, handle string, n int) ([]types.Post, error)
	ReadPost(ctx context.Context, id string) (*types.PostDetail, error)
	ListReplies(ctx context.Context, postID string, q ReplyQuery) (*types.ReplyPage, error)
}

// ReplyQuery selects a page of replies.
type ReplyQuery struct {
	Cursor   string
	MaxPages int
	// All asks the client to paginate on its own up to MaxPages, sleeping
	// Delay between pages.
	All   bool
	Delay time.Duration
}

// Op names a feed operation for error reporting.
type Op string

const (
	OpWhoami     Op = "whoami"
	OpUserTweets Op = "user-tweets"
	OpRead       Op = "read"
	OpReplies    Op = "replies"
)

var (
	// ErrCommand means the client exited non-zero or could not be started.
	ErrCommand = errors.New("feed command failed")
	// ErrMalformed means the client output did not match a known shape.
	ErrMalformed = errors.New("malformed feed output")
)

// Error describes a failed feed call. It wraps ErrCommand or ErrMalformed.
type Error struct {
	Op       Op
	Target   string
	ExitCode int
	Stderr   string
	Stdout   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Err)
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(": exit %d", e.ExitCode)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformed(op Op, target, stdout string, cause error) *Error {
	err := cause
	switch {
	case cause == nil:
		err = ErrMalformed
	case !errors.Is(cause, ErrMalformed):
		err = fmt.Errorf("%w: %v", ErrMalformed, cause)
	}
	return &Error{Op: op, Target: target, Stdout: stdout, Err: err}
}
