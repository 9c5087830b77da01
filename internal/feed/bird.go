package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Runner executes a command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. A non-zero exit is reported through exitCode
// with a nil error; err is only set when the process could not be run or
// ctx ended while it was running.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), stderr.Bytes(), -1, fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return stdout.Bytes(), stderr.Bytes(), -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

// Bird is a Client backed by the bird CLI.
type Bird struct {
	bin    string
	handle string
	runner Runner
	logger *zap.Logger
}

// NewBird creates a bird client. handle is only used to build target URLs
// for error messages.
func NewBird(bin, handle string, runner Runner, logger *zap.Logger) *Bird {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Bird{bin: bin, handle: handle, runner: runner, logger: logger.Named("feed")}
}

// CheckIdentity runs `bird whoami`. Any non-zero exit means not authenticated.
func (b *Bird) CheckIdentity(ctx context.Context) error {
	// whoami does not reliably support --json
	_, err := b.call(ctx, OpWhoami, "", outputPlain, cmdWhoami)
	return err
}

// ListRecentPosts runs `bird user-tweets @handle -n N --json`.
func (b *Bird) ListRecentPosts(ctx context.Context, handle string, n int) ([]types.Post, error) {
	target := "https://x.com/" + handle
	out, err := b.call(ctx, OpUserTweets, target, outputJSON, cmdUserTweets, "@"+handle, flagCount, strconv.Itoa(n))
	if err != nil {
		return nil, err
	}
	posts, err := ParseTimeline(out)
	if err != nil {
		return nil, malformed(OpUserTweets, target, string(out), err)
	}
	return posts, nil
}

// ReadPost runs `bird read ID --json-full`.
func (b *Bird) ReadPost(ctx context.Context, id string) (*types.PostDetail, error) {
	target := types.PostURL(b.handle, id)
	out, err := b.call(ctx, OpRead, target, outputJSONFull, cmdRead, id)
	if err != nil {
		return nil, err
	}
	detail, err := ParseRead(out)
	if err != nil {
		return nil, malformed(OpRead, target, string(out), err)
	}
	return detail, nil
}

// ListReplies runs `bird replies ID` for one page, or for up to MaxPages
// pages when q.All is set.
func (b *Bird) ListReplies(ctx context.Context, postID string, q ReplyQuery) (*types.ReplyPage, error) {
	target := types.PostURL(b.handle, postID)
	args := []string{cmdReplies, postID}
	if q.All {
		args = append(args, flagAll)
	}
	if q.MaxPages > 0 {
		args = append(args, flagMaxPages, strconv.Itoa(q.MaxPages))
	}
	if q.All && q.Delay > 0 {
		args = append(args, flagDelay, strconv.FormatInt(q.Delay.Milliseconds(), 10))
	}
	if q.Cursor != "" {
		args = append(args, flagCursor, q.Cursor)
	}

	out, err := b.call(ctx, OpReplies, target, outputJSON, args...)
	if err != nil {
		return nil, err
	}
	page, err := ParseReplies(out)
	if err != nil {
		return nil, malformed(OpReplies, target, string(out), err)
	}
	return page, nil
}

func (b *Bird) call(ctx context.Context, op Op, target string, mode outputMode, args ...string) ([]byte, error) {
	args = append(args, mode.flags()...)
	b.logger.Debug("running bird", zap.String("op", string(op)), zap.Strings("args", args))

	stdout, stderr, code, err := b.runner.Run(ctx, b.bin, args...)
	if err != nil {
		return nil, &Error{
			Op:     op,
			Target: target,
			Stderr: string(stderr),
			Err:    fmt.Errorf("%w: %w", ErrCommand, err),
		}
	}
	if code != 0 {
		b.logger.Warn("bird exited non-zero", zap.String("op", string(op)), zap.Int("exit_code", code))
		return nil, &Error{
			Op:       op,
			Target:   target,
			ExitCode: code,
			Stderr:   string(stderr),
			Stdout:   string(stdout),
			Err:      ErrCommand,
		}
	}
	return stdout, nil
}
