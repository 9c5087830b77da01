package analyzer

// Stance is the rule-derived position a reply takes toward the post.
type Stance string

const (
	Supportive Stance = "supportive"
	Skeptical  Stance = "skeptical"
	Neutral    Stance = "neutral"
)

// Only English and Chinese cues are covered; other languages fall to neutral.
var supportiveCues = []string{
	"nice", "solid", "great", "good", "love", "awesome", "amazing", "well done",
	"keep cooking", "keep it", "keep them coming", "big win", "polished",
	"production-ready", "intuitive", "momentum",
	"支持", "不错", "很好", "牛", "赞", "厉害", "期待",
}

var skepticalCues = []string{
	"scam", "rug", "fake", "bot", "when token", "wen token", "airdrop", "issue",
	"bug", "broken", "not working", "why", "concern", "risk",
	"骗局", "骗子", "割", "割韭菜", "假的", "假", "机器人", "刷", "空投",
}

// ClassifyStance checks skeptical cues before supportive ones, so a reply
// that mixes praise with a complaint counts as skeptical.
func ClassifyStance(text string) Stance {
	t := Normalize(text)
	if containsAny(t, skepticalCues) {
		return Skeptical
	}
	if containsAny(t, supportiveCues) {
		return Supportive
	}
	return Neutral
}

// StanceTally counts replies per stance.
type StanceTally struct {
	Supportive int `json:"supportive"`
	Skeptical  int `json:"skeptical"`
	Neutral    int `json:"neutral"`
}

// Total is the number of classified replies.
func (t StanceTally) Total() int {
	return t.Supportive + t.Skeptical + t.Neutral
}

func (t *StanceTally) add(s Stance) {
	switch s {
	case Supportive:
		t.Supportive++
	case Skeptical:
		t.Skeptical++
	default:
		t.Neutral++
	}
}
