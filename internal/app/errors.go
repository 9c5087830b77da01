package app

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ibeckermayer/threadwatch/internal/feed"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

const (
	stderrExcerpt = 600
	stdoutExcerpt = 2000
)

// Stage names the pipeline step a run failed in.
type Stage string

const (
	StageAuth     Stage = "auth"
	StageTimeline Stage = "timeline"
	StageState    Stage = "state"
	StageRead     Stage = "read"
	StageReplies  Stage = "replies"
)

// RunError aborts a whole run. No reports are emitted alongside it.
type RunError struct {
	Stage  Stage
	PostID string
	Err    error
}

func (e *RunError) Error() string {
	if e.PostID != "" {
		return fmt.Sprintf("%s failed for post %s: %v", e.Stage, e.PostID, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

const (
	hintRelogin = "Hint: log in to x.com in Chrome again, then run: bird whoami (if needed: bird query-ids --fresh)."
	hintFormat  = "Hint: the bird output format may have changed or requests are being rate limited; update bird and rerun with --verbose."
)

// Diagnose renders a fatal run error as the short text block printed in
// place of reports. Every block ends with a remediation line or an output
// excerpt.
func Diagnose(handle string, err error) string {
	prefix := fmt.Sprintf("[@%s monitor]", handle)

	var runErr *RunError
	if !errors.As(err, &runErr) {
		return fmt.Sprintf("%s failed: %v\n%s", prefix, err, hintRelogin)
	}

	var feedErr *feed.Error
	hasFeedErr := errors.As(runErr.Err, &feedErr)
	isMalformed := errors.Is(runErr.Err, feed.ErrMalformed)

	var lines []string
	switch runErr.Stage {
	case StageAuth:
		lines = append(lines,
			prefix+" failed: bird authentication or API error (whoami).",
			"Hint: make sure you are logged in to x.com in Chrome, then run: bird whoami (if needed: bird query-ids --fresh).")

	case StageTimeline:
		url := "https://x.com/" + handle
		if hasFeedErr && feedErr.Target != "" {
			url = feedErr.Target
		}
		if isMalformed {
			lines = append(lines,
				fmt.Sprintf("%s could not parse user-tweets JSON: %s", prefix, url),
				hintFormat)
			break
		}
		lines = append(lines,
			fmt.Sprintf("%s failed: could not read the user timeline (bird user-tweets): %s", prefix, url),
			"Hint: run bird whoami first; if you are logged in and it still fails, X may be rate limiting or the query ids expired (try bird query-ids --fresh).")

	case StageRead, StageReplies:
		what, cmd := "read post details", "bird read"
		if runErr.Stage == StageReplies {
			what, cmd = "fetch replies", "bird replies"
		}
		url := types.PostURL(handle, runErr.PostID)
		if hasFeedErr && feedErr.Target != "" {
			url = feedErr.Target
		}
		if isMalformed {
			lines = append(lines,
				fmt.Sprintf("%s could not parse %s JSON: %s", prefix, runErr.Stage, url),
				hintFormat)
			break
		}
		lines = append(lines,
			fmt.Sprintf("%s failed: could not %s (%s): %s", prefix, what, cmd, url),
			"Likely causes: X rate limiting, an expired login or stale query ids.",
			hintRelogin)

	case StageState:
		lines = append(lines,
			fmt.Sprintf("%s failed: state file error: %v", prefix, runErr.Err),
			"Hint: check the permissions of the state directory, or fix or move the state file (X_MONITOR_STATE_PATH) and rerun.")

	default:
		lines = append(lines, fmt.Sprintf("%s failed: %v", prefix, runErr.Err), hintRelogin)
	}

	if hasFeedErr {
		if isMalformed {
			lines = append(lines, "\n--- raw stdout (head) ---\n"+head(feedErr.Stdout, stdoutExcerpt, false))
		} else if stderr := strings.TrimSpace(feedErr.Stderr); stderr != "" {
			lines = append(lines, "stderr(head): "+head(stderr, stderrExcerpt, true))
		}
	}

	return strings.Join(lines, "\n")
}

// head keeps the first n runes of s.
func head(s string, n int, ellipsis bool) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	out := string([]rune(s)[:n])
	if ellipsis {
		out += "…"
	}
	return out
}
