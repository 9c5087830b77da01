package digest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/threadwatch/internal/analyzer"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Separator sits between reports when several are emitted in one run.
var Separator = "\n\n" + strings.Repeat("=", 40) + "\n\n"

const (
	keywordDigestSize = 12
	evidenceGroups    = 5
	accountsPerGroup  = 4
)

// Options describes how the replies were collected, for the report header.
type Options struct {
	Handle      string
	MinAgeHours float64
	MaxPages    int
	Delay       time.Duration
	Bulk        bool
	// Now overrides the clock used for post age.
	Now func() time.Time
}

// Builder compiles per-post reports
type Builder struct {
	opts Options
	now  func() time.Time
}

// New creates a new report builder
func New(opts Options) *Builder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Builder{opts: opts, now: now}
}

// Input is everything known about one post after harvesting and analysis.
type Input struct {
	Post     types.Post
	Detail   *types.PostDetail
	Harvest  *types.Harvest
	Analysis *analyzer.Result
}

// Report is a compiled report ready to print
type Report struct {
	PostID string
	URL    string
	Text   string
}

// interaction merges the extended read with the timeline counters, extended first.
type interaction struct {
	replies    *int
	retweets   *int
	quotes     *int
	likes      *int
	bookmarks  *int
	views      *int
	viewsState string
}

func interactionOf(in Input) interaction {
	var d types.PostDetail
	if in.Detail != nil {
		d = *in.Detail
	}
	m := in.Post.Metrics
	return interaction{
		replies:    types.FirstKnown(d.Legacy.Replies, m.Replies),
		retweets:   types.FirstKnown(d.Legacy.Retweets, m.Retweets),
		quotes:     types.FirstKnown(d.Legacy.Quotes, m.Quotes),
		likes:      types.FirstKnown(d.Legacy.Likes, m.Likes),
		bookmarks:  types.FirstKnown(d.Legacy.Bookmarks, m.Bookmarks),
		views:      d.Views,
		viewsState: d.ViewsState,
	}
}

// AdvertisedReplies is the reply count the platform shows for the post.
func AdvertisedReplies(in Input) *int {
	return interactionOf(in).replies
}

// Build renders the fixed report sections. It does no I/O.
func (b *Builder) Build(in Input) *Report {
	res := in.Analysis
	if res == nil {
		res = &analyzer.Result{}
	}
	h := in.Harvest
	if h == nil {
		h = &types.Harvest{PostID: in.Post.ID}
	}
	ix := interactionOf(in)
	url := types.PostURL(b.opts.Handle, in.Post.ID)

	var buf bytes.Buffer
	line := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
		buf.WriteByte('\n')
	}

	// Headline
	line("[@%s | replies %sh+ after posting: harvest & analysis]", b.opts.Handle, formatHours(b.opts.MinAgeHours))
	line("%s", tldr(h, res))
	line("")

	// Post metadata
	line("Post: %s", url)
	line("Posted: %s (about %.1fh ago)", in.Post.CreatedAtRaw, b.now().Sub(in.Post.CreatedAt).Hours())
	line("Post excerpt: %s", analyzer.Truncate(in.Post.Text, 280))
	line("")

	// Interaction metrics
	line("Interaction (X metrics, incl. views):")
	line("- Replies: %s", countOr(ix.replies, "?"))
	line("- Retweets: %s", countOr(ix.retweets, "?"))
	line("- Quotes: %s", countOr(ix.quotes, "?"))
	line("- Likes: %s", countOr(ix.likes, "?"))
	line("- Bookmarks: %s", countOr(ix.bookmarks, "?"))
	if ix.views != nil {
		state := ""
		if ix.viewsState != "" {
			state = " (" + ix.viewsState + ")"
		}
		line("- Views: %d%s", *ix.views, state)
	} else {
		line("- Views: unavailable (the extended read returned no views.count; views may be disabled for this post or access is limited)")
	}
	line("")

	b.writeVolume(line, h, res, ix.replies)
	writeStances(line, res)
	writeThemes(line, res)

	line("4. Recommendations (derived from the replies above)")
	for _, r := range Recommendations(res) {
		line("- [%s] %s", r.Priority, r.Text)
	}
	line("")

	writeRisks(line, res)

	if len(res.Keywords) > 0 {
		kw := res.Keywords
		if len(kw) > keywordDigestSize {
			kw = kw[:keywordDigestSize]
		}
		parts := make([]string, len(kw))
		for i, k := range kw {
			parts[i] = fmt.Sprintf("%s(%d)", k.Word, k.Count)
		}
		line("Appendix: top keywords (stopwords removed, rough count)")
		line("%s", strings.Join(parts, " · "))
		line("")
	}

	return &Report{
		PostID: in.Post.ID,
		URL:    url,
		Text:   strings.TrimRight(buf.String(), "\n") + "\n",
	}
}

func tldr(h *types.Harvest, res *analyzer.Result) string {
	fetched := h.Fetched()
	if fetched == 0 {
		return "TL;DR: few or no visible replies, or the harvest came back empty (possibly rate limited or low engagement)."
	}

	st := res.Stances
	var tone string
	switch {
	case st.Supportive == 0 && st.Skeptical == 0:
		tone = "mostly neutral"
	case st.Supportive >= st.Skeptical*3:
		tone = "predominantly supportive"
	case st.Skeptical > st.Supportive:
		tone = "skepticism stands out"
	default:
		tone = "mixed views"
	}

	s := fmt.Sprintf("TL;DR: fetched %d replies, %s", fetched, tone)
	if top := res.DominantTheme(); top != nil {
		s += fmt.Sprintf(", mostly about %q", top.Label)
	}
	return s + "."
}

func (b *Builder) writeVolume(line func(string, ...any), h *types.Harvest, res *analyzer.Result, advertised *int) {
	line("1. Reply volume & participation")
	line("- Replies shown on X: %s", countOr(advertised, "unknown"))

	mode := fmt.Sprintf("paged, %d page(s)", h.Pages)
	if b.opts.Bulk {
		mode = "bird replies --all"
	}
	fetched := fmt.Sprintf("- Fetched: %d (%s; maxPages=%d; delayMs=%d)",
		h.Fetched(), mode, b.opts.MaxPages, b.opts.Delay.Milliseconds())
	if h.NextCursor != "" {
		fetched += "; note: a next cursor remains, more replies may exist (maxPages reached or paging blocked)"
	}
	if h.RateLimitNote != "" {
		fetched += "; note: " + h.RateLimitNote
	}
	line("%s", fetched)

	if ratio, ok := h.Coverage(advertised); ok {
		line("- Coverage (estimate): %.1f%%", ratio*100)
	} else {
		line("- Coverage (estimate): cannot estimate")
	}
	line("- Participating accounts (unique authors): %d", res.Engagement.UniqueAuthors)

	e := res.Engagement
	if e.LikeAvg != nil || e.LikeMedian != nil {
		s := fmt.Sprintf("- Sample engagement (sample only): like avg=%s · like median=%s",
			floatOr(e.LikeAvg), countOr(e.LikeMedian, "?"))
		if e.RetweetAvg != nil {
			s += fmt.Sprintf(" · rt avg=%.2f", *e.RetweetAvg)
		}
		if e.QuoteAvg != nil {
			s += fmt.Sprintf(" · quote avg=%.2f", *e.QuoteAvg)
		}
		line("%s", s)
	}
	line("")
}

func writeStances(line func(string, ...any), res *analyzer.Result) {
	line("2. Stance distribution (rough keyword classification)")
	line("- Supportive: %d", res.Stances.Supportive)
	line("- Skeptical: %d", res.Stances.Skeptical)
	line("- Neutral: %d", res.Stances.Neutral)
	line("")

	sides := []struct {
		name     string
		examples []types.Reply
	}{
		{"Supportive", res.SupportExamples},
		{"Skeptical", res.SkepticExamples},
	}
	for _, side := range sides {
		if len(side.examples) == 0 {
			line("%s arguments: insufficient evidence (no clearly %s replies in the sample).",
				side.name, strings.ToLower(side.name))
			line("")
			continue
		}
		line("%s arguments (quoted as evidence)", side.name)
		for _, r := range side.examples {
			line("- %s", quote(r, 220))
		}
		line("")
	}
}

func writeThemes(line func(string, ...any), res *analyzer.Result) {
	line("3. Themes (rule-based clusters, up to %d representative replies each)", analyzer.QuotesPerTheme)
	for _, th := range res.Themes {
		line("- Theme: %s (n=%d)", th.Label, len(th.Replies))
		if len(th.Keywords) > 0 {
			words := make([]string, len(th.Keywords))
			for i, k := range th.Keywords {
				words[i] = k.Word
			}
			line("  Keywords: %s", strings.Join(words, ", "))
		}
		for _, r := range th.Examples {
			line("  - %s", quote(r, 200))
		}
	}
	line("")
}

func writeRisks(line func(string, ...any), res *analyzer.Result) {
	line("5. Risks & anomalies (bot / template signals)")
	le := res.LowEffort
	line("- Short generic praise (<=%d chars): %.1f%% (%d/%d)",
		analyzer.ShortReplyRunes, le.ShortGenericRatio*100, le.ShortGeneric, res.Total)
	line("- Empty or link-only (rough): %.1f%% (%d/%d)", le.EmptyOrLinkRatio*100, le.EmptyOrLink, res.Total)
	line("- Duplicate text coverage (same sentence from several accounts, rough): %.1f%% (%d/%d)",
		res.DuplicateRatio*100, res.DuplicateMembers, res.Total)

	if len(res.Duplicates) == 0 {
		line("- No obvious templated duplicate replies in the sample.")
		line("")
		return
	}

	line("- Found %d group(s) of highly repeated replies, possibly templated (the same sentence from different accounts):",
		len(res.Duplicates))
	groups := res.Duplicates
	if len(groups) > evidenceGroups {
		groups = groups[:evidenceGroups]
	}
	for _, g := range groups {
		members := g.Replies
		if len(members) > accountsPerGroup {
			members = members[:accountsPerGroup]
		}
		who := make([]string, len(members))
		for i, r := range members {
			who[i] = fmt.Sprintf("@%s(%s)", username(r), types.ReplyURL(r.ID))
		}
		more := ""
		if len(g.Replies) > accountsPerGroup {
			more = " …"
		}
		line("  - “%s” ×%d: %s%s", analyzer.Truncate(g.Text, 160), len(g.Replies), strings.Join(who, " · "), more)
	}
	line("")
}

// Join concatenates reports in order with the separator.
func Join(reports []*Report) string {
	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = strings.TrimRight(r.Text, "\n")
	}
	return strings.Join(texts, Separator)
}

func quote(r types.Reply, max int) string {
	return fmt.Sprintf("“%s” — @%s %s", analyzer.Truncate(r.Text, max), username(r), types.ReplyURL(r.ID))
}

func username(r types.Reply) string {
	if r.Author.Username == "" {
		return "?"
	}
	return r.Author.Username
}

func countOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}

func floatOr(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
