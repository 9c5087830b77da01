// Package filter decides which timeline posts are ready to be reported on.
package filter

import (
	"math"
	"sort"
	"time"

	"github.com/ibeckermayer/threadwatch/internal/store"
	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Window bounds post age in hours. A non-finite MaxAgeHours disables the
// upper bound.
type Window struct {
	MinAgeHours float64
	MaxAgeHours float64
}

// Eligible returns posts that have an id and a parsed timestamp, fall inside
// the age window at now, and are not in st. The result is oldest first; equal
// timestamps are ordered by numeric id.
func Eligible(posts []types.Post, st *store.State, w Window, now time.Time) []types.Post {
	capped := !math.IsInf(w.MaxAgeHours, 0) && !math.IsNaN(w.MaxAgeHours)

	var out []types.Post
	for _, p := range posts {
		if p.ID == "" || p.CreatedAt.IsZero() {
			continue
		}
		age := now.Sub(p.CreatedAt).Hours()
		if age < w.MinAgeHours {
			continue
		}
		if capped && age > w.MaxAgeHours {
			continue
		}
		if st != nil && st.Has(p.ID) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return store.CompareIDs(out[i].ID, out[j].ID) < 0
	})
	return out
}

// Take returns at most n posts, with n floored at 1.
func Take(posts []types.Post, n int) []types.Post {
	if n < 1 {
		n = 1
	}
	if len(posts) > n {
		return posts[:n]
	}
	return posts
}
