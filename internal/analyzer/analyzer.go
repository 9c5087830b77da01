// Package analyzer derives reply statistics with fixed keyword rules. There is
// no model inference: every conclusion can be traced to matching text.
package analyzer

import (
	"github.com/ibeckermayer/threadwatch/internal/types"
)

const (
	// QuotesPerSide is how many stance examples are quoted.
	QuotesPerSide = 3
	// QuotesPerTheme is how many representative replies a theme quotes.
	QuotesPerTheme = 3
	// KeywordsPerTheme is how many keywords a theme lists.
	KeywordsPerTheme = 6
)

// ThemeSummary is a theme with its evidence.
type ThemeSummary struct {
	Theme
	Keywords []Keyword     `json:"keywords"`
	Examples []types.Reply `json:"examples"`
}

// Result is everything the report needs about one reply set
type Result struct {
	Total            int              `json:"total"`
	Keywords         []Keyword        `json:"keywords"`
	Stances          StanceTally      `json:"stances"`
	SupportExamples  []types.Reply    `json:"support_examples"`
	SkepticExamples  []types.Reply    `json:"skeptic_examples"`
	Themes           []ThemeSummary   `json:"themes"`
	Duplicates       []DuplicateGroup `json:"duplicates"`
	DuplicateMembers int              `json:"duplicate_members"`
	DuplicateRatio   float64          `json:"duplicate_ratio"`
	Engagement       Engagement       `json:"engagement"`
	LowEffort        LowEffort        `json:"low_effort"`
}

// DominantTheme returns the largest theme, or nil when there are no replies.
func (r *Result) DominantTheme() *ThemeSummary {
	if len(r.Themes) == 0 {
		return nil
	}
	return &r.Themes[0]
}

// HasTheme reports whether any reply landed in theme id.
func (r *Result) HasTheme(id ThemeID) bool {
	for _, t := range r.Themes {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Analyzer runs the rule set for one monitored account
type Analyzer struct {
	handle string
}

// New creates an analyzer. handle is dropped from keyword counts.
func New(handle string) *Analyzer {
	return &Analyzer{handle: handle}
}

// Analyze computes the full result for replies. It does no I/O.
func (a *Analyzer) Analyze(replies []types.Reply) *Result {
	res := &Result{
		Total:      len(replies),
		Keywords:   ReplyKeywords(replies, a.handle),
		Engagement: EngagementStats(replies),
		LowEffort:  LowEffortSignals(replies),
	}

	var support, skeptic []types.Reply
	for _, r := range replies {
		s := ClassifyStance(r.Text)
		res.Stances.add(s)
		switch s {
		case Supportive:
			support = append(support, r)
		case Skeptical:
			skeptic = append(skeptic, r)
		}
	}
	res.SupportExamples = Representative(support, QuotesPerSide)
	res.SkepticExamples = Representative(skeptic, QuotesPerSide)

	for _, th := range BuildThemes(replies) {
		kw := ReplyKeywords(th.Replies, a.handle)
		if len(kw) > KeywordsPerTheme {
			kw = kw[:KeywordsPerTheme]
		}
		res.Themes = append(res.Themes, ThemeSummary{
			Theme:    th,
			Keywords: kw,
			Examples: Representative(th.Replies, QuotesPerTheme),
		})
	}

	res.Duplicates = DetectDuplicates(replies)
	res.DuplicateMembers, res.DuplicateRatio = DuplicateCoverage(res.Duplicates, len(replies))
	return res
}
