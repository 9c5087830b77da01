package analyzer

import (
	"sort"
	"strings"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// MaxThemes caps how many themes BuildThemes returns.
const MaxThemes = 6

// ThemeID identifies a theme definition.
type ThemeID string

const (
	ThemeUX        ThemeID = "ux"
	ThemeStability ThemeID = "stability"
	ThemeProgress  ThemeID = "progress"
	ThemeTrading   ThemeID = "trading"
	ThemeOther     ThemeID = "other"
)

type themeDef struct {
	id       ThemeID
	label    string
	keywords []string
}

// Order matters: ties go to the earlier definition.
var themeDefs = []themeDef{
	{ThemeUX, "UX / interface & terminology",
		[]string{"ux", "ui", "copy", "label", "labels", "terminology", "intuitive", "polished", "readable"}},
	{ThemeStability, "Stability / performance / charts",
		[]string{"stable", "stability", "refresh", "chart", "flow", "real-time", "hiccups", "faster"}},
	{ThemeProgress, "Product progress / launch expectations",
		[]string{"testnet", "beta", "production", "ready", "momentum", "progress", "shipping"}},
	{ThemeTrading, "Trading experience / friction",
		[]string{"trading", "experience", "friction", "actions", "smoother"}},
	{ThemeOther, "Other", nil},
}

// Theme is a bucket of replies that matched the same definition.
type Theme struct {
	ID      ThemeID       `json:"id"`
	Label   string        `json:"label"`
	Replies []types.Reply `json:"replies"`
}

// AssignTheme scores text against every definition by the number of
// matching keywords. The highest score wins; zero means ThemeOther.
func AssignTheme(text string) ThemeID {
	t := Normalize(text)
	best, bestScore := ThemeOther, 0
	for _, def := range themeDefs {
		score := 0
		for _, kw := range def.keywords {
			if strings.Contains(t, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = def.id, score
		}
	}
	return best
}

// BuildThemes buckets every reply into exactly one theme and returns the
// non-empty ones, largest first.
func BuildThemes(replies []types.Reply) []Theme {
	buckets := make([]Theme, len(themeDefs))
	index := make(map[ThemeID]int, len(themeDefs))
	for i, def := range themeDefs {
		buckets[i] = Theme{ID: def.id, Label: def.label}
		index[def.id] = i
	}

	for _, r := range replies {
		i := index[AssignTheme(r.Text)]
		buckets[i].Replies = append(buckets[i].Replies, r)
	}

	var out []Theme
	for _, b := range buckets {
		if len(b.Replies) > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Replies) > len(out[j].Replies) })
	if len(out) > MaxThemes {
		out = out[:MaxThemes]
	}
	return out
}
