package analyzer

import (
	"sort"
	"unicode/utf8"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// Engagement summarizes counters over the harvested sample. Nil means no
// reply carried the counter.
type Engagement struct {
	UniqueAuthors int      `json:"unique_authors"`
	LikeAvg       *float64 `json:"like_avg,omitempty"`
	LikeMedian    *int     `json:"like_median,omitempty"`
	RetweetAvg    *float64 `json:"retweet_avg,omitempty"`
	QuoteAvg      *float64 `json:"quote_avg,omitempty"`
}

// EngagementStats counts distinct authors and averages the known counters.
func EngagementStats(replies []types.Reply) Engagement {
	authors := make(map[string]bool)
	var likes, retweets, quotes []int
	for _, r := range replies {
		if r.Author.Username != "" {
			authors[r.Author.Username] = true
		}
		if r.Likes != nil {
			likes = append(likes, *r.Likes)
		}
		if r.Retweets != nil {
			retweets = append(retweets, *r.Retweets)
		}
		if r.Quotes != nil {
			quotes = append(quotes, *r.Quotes)
		}
	}

	return Engagement{
		UniqueAuthors: len(authors),
		LikeAvg:       mean(likes),
		LikeMedian:    lowerMedian(likes),
		RetweetAvg:    mean(retweets),
		QuoteAvg:      mean(quotes),
	}
}

func mean(vals []int) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	m := float64(sum) / float64(len(vals))
	return &m
}

// lowerMedian takes the lower of the two middle values for even counts.
func lowerMedian(vals []int) *int {
	if len(vals) == 0 {
		return nil
	}
	s := make([]int, len(vals))
	copy(s, vals)
	sort.Ints(s)
	m := s[(len(s)-1)/2]
	return &m
}

// ShortReplyRunes is the longest stripped reply still counted as short.
const ShortReplyRunes = 20

var praiseCues = []string{"nice", "great", "good", "awesome", "amazing", "love", "solid", "cool", "based"}

// LowEffort counts replies that carry little information.
type LowEffort struct {
	ShortGeneric      int     `json:"short_generic"`
	ShortGenericRatio float64 `json:"short_generic_ratio"`
	EmptyOrLink       int     `json:"empty_or_link"`
	EmptyOrLinkRatio  float64 `json:"empty_or_link_ratio"`
}

// LowEffortSignals flags empty or link-only replies and short generic praise.
// Ratios use max(len(replies), 1) as denominator.
func LowEffortSignals(replies []types.Reply) LowEffort {
	var le LowEffort
	for _, r := range replies {
		stripped := StripLinks(r.Text)
		if stripped == "" {
			le.EmptyOrLink++
			continue
		}
		short := utf8.RuneCountInString(stripped) <= ShortReplyRunes
		if short && containsAny(Normalize(stripped), praiseCues) {
			le.ShortGeneric++
		}
	}

	n := len(replies)
	if n == 0 {
		n = 1
	}
	le.ShortGenericRatio = float64(le.ShortGeneric) / float64(n)
	le.EmptyOrLinkRatio = float64(le.EmptyOrLink) / float64(n)
	return le
}
