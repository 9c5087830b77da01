package providers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ibeckermayer/threadwatch/internal/feed"
)

const outputExcerpt = 2000

// CommandSender sends messages through a chat CLI:
// <bin> message send --channel <channel> --target <target> --message <msg>
type CommandSender struct {
	bin     string
	channel string
	runner  feed.Runner
}

// NewCommandSender creates a new command sender. A nil runner uses os/exec.
func NewCommandSender(bin, channel string, runner feed.Runner) *CommandSender {
	if runner == nil {
		runner = feed.ExecRunner{}
	}
	return &CommandSender{bin: bin, channel: channel, runner: runner}
}

// SendError reports a send command that exited non-zero.
type SendError struct {
	Target   string
	ExitCode int
	Output   string
}

func (e *SendError) Error() string {
	msg := fmt.Sprintf("send to %s failed (exit=%d)", e.Target, e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// Send delivers one message to target
func (s *CommandSender) Send(ctx context.Context, target, message string) error {
	stdout, stderr, code, err := s.runner.Run(ctx, s.bin,
		"message", "send",
		"--channel", s.channel,
		"--target", target,
		"--message", message,
	)
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", s.bin, err)
	}
	if code != 0 {
		out := strings.TrimSpace(string(stderr))
		if out == "" {
			out = strings.TrimSpace(string(stdout))
		}
		return &SendError{Target: target, ExitCode: code, Output: excerpt(out)}
	}
	return nil
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= outputExcerpt {
		return s
	}
	return string([]rune(s)[:outputExcerpt])
}
