package app

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/threadwatch/internal/feed"
)

func TestDiagnose_StderrExcerpt(t *testing.T) {
	err := &RunError{Stage: StageReplies, PostID: "1001", Err: &feed.Error{
		Op:       feed.OpReplies,
		ExitCode: 1,
		Stderr:   strings.Repeat("é", 700),
		Err:      feed.ErrCommand,
	}}

	out := Diagnose("1024EX", err)
	assert.Contains(t, out, "could not fetch replies (bird replies): https://x.com/1024EX/status/1001")
	assert.Contains(t, out, "Likely causes")

	_, excerpt, ok := strings.Cut(out, "stderr(head): ")
	assert.True(t, ok)
	assert.Equal(t, 601, utf8.RuneCountInString(excerpt))
	assert.True(t, strings.HasSuffix(excerpt, "…"))
}

func TestDiagnose_StdoutExcerpt(t *testing.T) {
	err := &RunError{Stage: StageRead, PostID: "1001", Err: &feed.Error{
		Op:     feed.OpRead,
		Target: "https://x.com/1024EX/status/1001",
		Stdout: strings.Repeat("x", 2500),
		Err:    feed.ErrMalformed,
	}}

	out := Diagnose("1024EX", err)
	assert.Contains(t, out, "could not parse read JSON: https://x.com/1024EX/status/1001")
	_, excerpt, ok := strings.Cut(out, "--- raw stdout (head) ---\n")
	assert.True(t, ok)
	assert.Len(t, excerpt, 2000)
	assert.NotContains(t, out, "stderr(head)")
}

func TestDiagnose_TimelineFallsBackToProfileURL(t *testing.T) {
	out := Diagnose("1024EX", &RunError{Stage: StageTimeline, Err: feed.ErrCommand})
	assert.Contains(t, out, "(bird user-tweets): https://x.com/1024EX\n")

	out = Diagnose("1024EX", &RunError{Stage: StageTimeline, Err: &feed.Error{
		Op:     feed.OpUserTweets,
		Stdout: "<html>",
		Err:    feed.ErrMalformed,
	}})
	assert.Contains(t, out, "could not parse user-tweets JSON: https://x.com/1024EX\n")
}

func TestDiagnose_State(t *testing.T) {
	out := Diagnose("1024EX", &RunError{Stage: StageState, Err: errors.New("failed to parse state file")})
	assert.Contains(t, out, "state file error")
	assert.Contains(t, out, "X_MONITOR_STATE_PATH")
}

func TestDiagnose_Unstaged(t *testing.T) {
	out := Diagnose("1024EX", errors.New("boom"))
	assert.Equal(t, "[@1024EX monitor] failed: boom\n"+hintRelogin, out)
}

func TestRunError(t *testing.T) {
	cause := feed.ErrCommand
	err := &RunError{Stage: StageRead, PostID: "7", Err: cause}
	assert.Equal(t, "read failed for post 7: feed command failed", err.Error())
	assert.ErrorIs(t, err, feed.ErrCommand)
	assert.Equal(t, "auth failed: feed command failed", (&RunError{Stage: StageAuth, Err: cause}).Error())
}
