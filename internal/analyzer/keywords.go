package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

// MaxKeywords is how many keywords ExtractKeywords returns.
const MaxKeywords = 20

var (
	nonWordPattern = regexp.MustCompile(`[^a-z0-9_]+`)
	cjkPattern     = regexp.MustCompile(`[\x{4e00}-\x{9fff}]{2,4}`)
)

var englishStopwords = toSet(
	"the", "a", "an", "and", "or", "to", "of", "in", "on", "for", "with",
	"is", "are", "be", "been", "it", "this", "that", "these", "those",
	"you", "your", "we", "they", "i", "im", "it's", "its", "at", "as",
	"from", "by", "not", "now", "more", "less", "just", "like",
	"nice", "great", "good", "keep", "coming", "team", "listening",
)

var cjkStopwords = toSet(
	"这个", "那个", "我们", "你们", "他们", "一个", "一下", "不是", "可以",
	"没有", "就是", "感觉", "真的", "还是", "因为", "所以", "但是", "然后",
	"如果", "怎么", "什么", "哈哈", "谢谢", "支持", "不错",
)

// Keyword is a token and how often it occurred.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// counter tallies keys and remembers the order they were first seen in.
type counter struct {
	index map[string]int
	items []Keyword
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(word string) {
	if i, ok := c.index[word]; ok {
		c.items[i].Count++
		return
	}
	c.index[word] = len(c.items)
	c.items = append(c.items, Keyword{Word: word, Count: 1})
}

// ranked returns the top n by count. Ties keep first-seen order.
func (c *counter) ranked(n int) []Keyword {
	out := make([]Keyword, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ExtractKeywords counts Latin words of three or more characters and CJK runs
// of two to four characters, minus stopwords and the monitored handle.
// Latin words are counted before CJK runs, so they win ties.
func ExtractKeywords(text, handle string) []Keyword {
	c := newCounter()
	handle = strings.ToLower(strings.TrimPrefix(handle, "@"))

	latin := linkPattern.ReplaceAllString(strings.ToLower(text), " ")
	latin = nonWordPattern.ReplaceAllString(latin, " ")
	for _, w := range strings.Fields(latin) {
		if len(w) < 3 || englishStopwords[w] || w == handle {
			continue
		}
		c.add(w)
	}

	cjk := linkPattern.ReplaceAllString(text, " ")
	for _, t := range cjkPattern.FindAllString(cjk, -1) {
		if cjkStopwords[t] {
			continue
		}
		c.add(t)
	}

	return c.ranked(MaxKeywords)
}

// ReplyKeywords runs ExtractKeywords over the newline-joined reply texts.
func ReplyKeywords(replies []types.Reply, handle string) []Keyword {
	texts := make([]string, len(replies))
	for i, r := range replies {
		texts[i] = r.Text
	}
	return ExtractKeywords(strings.Join(texts, "\n"), handle)
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
