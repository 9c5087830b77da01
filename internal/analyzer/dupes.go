package analyzer

import (
	"sort"
	"unicode/utf8"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// MaxDuplicateGroups caps how many groups DetectDuplicates returns.
const MaxDuplicateGroups = 10

// DuplicateGroup is a set of replies sharing the same normalized text.
type DuplicateGroup struct {
	Text    string        `json:"text"`
	Replies []types.Reply `json:"replies"`
}

// DetectDuplicates groups replies by normalized text and keeps groups of two
// or more, largest first.
func DetectDuplicates(replies []types.Reply) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup
	for _, r := range replies {
		nt := Normalize(r.Text)
		if nt == "" {
			continue
		}
		i, ok := index[nt]
		if !ok {
			i = len(groups)
			index[nt] = i
			groups = append(groups, DuplicateGroup{Text: nt})
		}
		groups[i].Replies = append(groups[i].Replies, r)
	}

	var out []DuplicateGroup
	for _, g := range groups {
		if len(g.Replies) >= 2 {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Replies) > len(out[j].Replies) })
	if len(out) > MaxDuplicateGroups {
		out = out[:MaxDuplicateGroups]
	}
	return out
}

// DuplicateCoverage is the share of replies that sit inside the given groups.
func DuplicateCoverage(groups []DuplicateGroup, total int) (members int, ratio float64) {
	for _, g := range groups {
		members += len(g.Replies)
	}
	if total == 0 {
		return members, 0
	}
	return members, float64(members) / float64(total)
}

// Representative picks up to n replies as evidence, longest first, skipping
// empty and repeated normalized text.
func Representative(replies []types.Reply, n int) []types.Reply {
	sorted := make([]types.Reply, len(replies))
	copy(sorted, replies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Text) > utf8.RuneCountInString(sorted[j].Text)
	})

	seen := make(map[string]bool)
	var out []types.Reply
	for _, r := range sorted {
		if len(out) >= n {
			break
		}
		nt := Normalize(r.Text)
		if nt == "" || seen[nt] {
			continue
		}
		seen[nt] = true
		out = append(out, r)
	}
	return out
}
