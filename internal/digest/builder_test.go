package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/threadwatch/internal/analyzer"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

var now = time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)

func testBuilder() *Builder {
	return New(Options{
		Handle:      "1024EX",
		MinAgeHours: 24,
		MaxPages:    50,
		Delay:       800 * time.Millisecond,
		Now:         func() time.Time { return now },
	})
}

func testPost() types.Post {
	return types.Post{
		ID:           "1001",
		CreatedAt:    now.Add(-30 * time.Hour),
		CreatedAtRaw: "Wed Oct 15 06:00:00 +0000 2025",
		Text:         "Shipped a new order panel today.",
		Metrics:      types.Metrics{Replies: types.IntPtr(9), Likes: types.IntPtr(40)},
	}
}

func mkReplies(texts ...string) []types.Reply {
	out := make([]types.Reply, len(texts))
	for i, t := range texts {
		out[i] = types.Reply{
			ID:     fmt.Sprintf("r%d", i+1),
			Author: types.Author{Username: fmt.Sprintf("user%d", i+1)},
			Text:   t,
		}
	}
	return out
}

func build(t *testing.T, detail *types.PostDetail, h *types.Harvest) string {
	t.Helper()
	res := analyzer.New("1024EX").Analyze(h.Replies)
	r := testBuilder().Build(Input{Post: testPost(), Detail: detail, Harvest: h, Analysis: res})
	require.NotNil(t, r)
	assert.Equal(t, "1001", r.PostID)
	assert.Equal(t, "https://x.com/1024EX/status/1001", r.URL)
	return r.Text
}

func TestBuild_ScenarioA(t *testing.T) {
	h := &types.Harvest{PostID: "1001", Pages: 1, Replies: mkReplies(
		"Love the new dashboard, really polished work",
		"Solid update, the charts feel much faster",
		"Amazing progress, keep shipping",
		"Is this a scam? Withdrawals still broken",
		"When is the next update coming out",
	)}
	detail := &types.PostDetail{
		Legacy:     types.Metrics{Replies: types.IntPtr(10), Quotes: types.IntPtr(2), Bookmarks: types.IntPtr(1)},
		Views:      types.IntPtr(5400),
		ViewsState: "EnabledWithCount",
	}
	text := build(t, detail, h)

	assert.Contains(t, text, "- Supportive: 3\n- Skeptical: 1\n- Neutral: 1")
	assert.Contains(t, text, "Supportive arguments (quoted as evidence)")
	assert.Contains(t, text, "Skeptical arguments (quoted as evidence)")
	assert.NotContains(t, text, "insufficient evidence")
	assert.Contains(t, text, "“Is this a scam? Withdrawals still broken” — @user4 https://x.com/i/web/status/r4")
	assert.Contains(t, text, "TL;DR: fetched 5 replies, predominantly supportive")

	assert.Contains(t, text, "- Replies: 10\n")
	assert.Contains(t, text, "- Likes: 40\n", "falls back to timeline counters")
	assert.Contains(t, text, "- Views: 5400 (EnabledWithCount)")
	assert.Contains(t, text, "- Coverage (estimate): 50.0%")
	assert.Contains(t, text, "Posted: Wed Oct 15 06:00:00 +0000 2025 (about 30.0h ago)")
	assert.Contains(t, text, "- Fetched: 5 (paged, 1 page(s); maxPages=50; delayMs=800)")
}

func TestBuild_SectionOrder(t *testing.T) {
	h := &types.Harvest{PostID: "1001", Pages: 1, Replies: mkReplies("nice chart refresh", "gm")}
	text := build(t, nil, h)

	headers := []string{
		"[@1024EX | replies 24h+ after posting",
		"TL;DR:",
		"Post: ",
		"Interaction (X metrics",
		"1. Reply volume",
		"2. Stance distribution",
		"3. Themes",
		"4. Recommendations",
		"5. Risks & anomalies",
		"Appendix: top keywords",
	}
	last := -1
	for _, hdr := range headers {
		i := strings.Index(text, hdr)
		require.GreaterOrEqual(t, i, 0, hdr)
		assert.Greater(t, i, last, hdr)
		last = i
	}
}

func TestBuild_EmptyHarvest(t *testing.T) {
	h := &types.Harvest{PostID: "1001", Pages: 1, NextCursor: "abc", RateLimitNote: "stalled"}
	text := build(t, nil, h)

	assert.Contains(t, text, "TL;DR: few or no visible replies")
	assert.Contains(t, text, "Supportive arguments: insufficient evidence")
	assert.Contains(t, text, "Skeptical arguments: insufficient evidence")
	assert.Contains(t, text, "note: a next cursor remains")
	assert.Contains(t, text, "; note: stalled")
	assert.Contains(t, text, "- Views: unavailable")
	assert.Contains(t, text, "(0/0)")
	assert.NotContains(t, text, "Appendix")
}

func TestBuild_NeutralTone(t *testing.T) {
	h := &types.Harvest{PostID: "1001", Pages: 1, Replies: mkReplies("gm", "gn")}
	text := build(t, nil, h)
	assert.Contains(t, text, "TL;DR: fetched 2 replies, mostly neutral, mostly about \"Other\".")
}

func TestTLDR_Tones(t *testing.T) {
	h := &types.Harvest{Replies: mkReplies("x")}
	tests := []struct {
		st   analyzer.StanceTally
		want string
	}{
		{analyzer.StanceTally{Supportive: 3, Skeptical: 1}, "predominantly supportive"},
		{analyzer.StanceTally{Supportive: 2, Skeptical: 1}, "mixed views"},
		{analyzer.StanceTally{Supportive: 1, Skeptical: 2}, "skepticism stands out"},
		{analyzer.StanceTally{Supportive: 1}, "predominantly supportive"},
		{analyzer.StanceTally{Neutral: 4}, "mostly neutral"},
	}
	for _, tt := range tests {
		got := tldr(h, &analyzer.Result{Stances: tt.st})
		assert.Contains(t, got, tt.want)
	}
}

func TestBuild_DuplicateEvidence(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = "nice work!"
	}
	h := &types.Harvest{PostID: "1001", Pages: 1, Replies: mkReplies(texts...)}
	text := build(t, nil, h)

	assert.Contains(t, text, "- Short generic praise (<=20 chars): 100.0% (10/10)")
	assert.Contains(t, text, "- Duplicate text coverage (same sentence from several accounts, rough): 100.0% (10/10)")
	assert.Contains(t, text, "Found 1 group(s)")
	assert.Contains(t, text, "“nice work!” ×10: @user1(https://x.com/i/web/status/r1) · @user2")
	assert.Contains(t, text, "@user4(https://x.com/i/web/status/r4) …")
	assert.NotContains(t, text, "@user5(")
}

func TestRecommendations(t *testing.T) {
	none := Recommendations(&analyzer.Result{})
	require.Len(t, none, 3)
	assert.Equal(t, "low", none[2].Priority)

	all := Recommendations(&analyzer.Result{Themes: []analyzer.ThemeSummary{
		{Theme: analyzer.Theme{ID: analyzer.ThemeUX}},
		{Theme: analyzer.Theme{ID: analyzer.ThemeStability}},
		{Theme: analyzer.Theme{ID: analyzer.ThemeProgress}},
	}})
	require.Len(t, all, 3)
	assert.Equal(t, "high", all[0].Priority)
	assert.Equal(t, "medium", all[2].Priority)

	two := Recommendations(&analyzer.Result{Themes: []analyzer.ThemeSummary{
		{Theme: analyzer.Theme{ID: analyzer.ThemeTrading}},
		{Theme: analyzer.Theme{ID: analyzer.ThemeOther}},
	}})
	assert.Len(t, two, 4)
}

func TestJoin(t *testing.T) {
	out := Join([]*Report{{Text: "one\n"}, {Text: "two\n"}})
	assert.Equal(t, "one\n\n"+strings.Repeat("=", 40)+"\n\ntwo", out)
	assert.Equal(t, "solo", Join([]*Report{{Text: "solo"}}))
	assert.Equal(t, "", Join(nil))
}
