package digest

import "github.com/ibeckermayer/threadwatch/internal/analyzer"

const maxRecommendations = 7

// Recommendation is an action item derived from the reply themes.
type Recommendation struct {
	Priority string
	Text     string
}

var themeRecommendations = []struct {
	theme analyzer.ThemeID
	rec   Recommendation
}{
	{analyzer.ThemeUX, Recommendation{"high",
		"Turn copy/label/terminology changes into a reusable public changelog template (same format every week) to keep reinforcing the \"we listen to users\" story."}},
	{analyzer.ThemeStability, Recommendation{"high",
		"For sensitive spots like chart refresh and real-time flow, publish a performance/stability metric page or milestone (even a simple one) so the praise stays sustainable and quotable."}},
	{analyzer.ThemeProgress, Recommendation{"medium",
		"End update posts with a short \"next 1-2 weeks\" section that points users at concrete feedback questions."}},
	{analyzer.ThemeTrading, Recommendation{"medium",
		"Show the reduced friction as a 30-second before/after clip or GIF; \"smoother\" and \"more intuitive\" replies make good quotes."}},
}

var fallbackRecommendations = []Recommendation{
	{"medium", "Pin or quote 2-3 high-quality replies (thank them and ask one actionable follow-up) so the thread becomes visible evidence of co-creation."},
	{"medium", "Add an explicit call to action on low-engagement topics, e.g. \"What needs fixing most: A, B or C?\" or \"Reply with the market you most want to trade.\""},
	{"low", "Collect frequent words and questions from the replies into a small FAQ card attached to the next similar post."},
}

// Recommendations fires one item per matched theme and pads with generic
// items when fewer than three fired. Duplicates are dropped and the list is
// capped at seven.
func Recommendations(res *analyzer.Result) []Recommendation {
	var recs []Recommendation
	for _, tr := range themeRecommendations {
		if res.HasTheme(tr.theme) {
			recs = append(recs, tr.rec)
		}
	}
	if len(recs) < 3 {
		recs = append(recs, fallbackRecommendations...)
	}

	seen := make(map[Recommendation]bool)
	var out []Recommendation
	for _, r := range recs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
