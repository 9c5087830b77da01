package notifier

import "strings"

const (
	newlineWindow = 200
	spaceWindow   = 120
)

// Split breaks text into chunks of at most limit runes. A cut prefers the last
// newline within the final 200 runes of the window, then the last space
// within the final 120, else it falls at the hard limit. Chunks are trimmed
// and empty ones dropped. Text that already fits is returned as is.
func Split(text string, limit int) []string {
	r := []rune(text)
	if limit < 1 || len(r) <= limit {
		return []string{text}
	}

	var chunks []string
	for i := 0; i < len(r); {
		end := min(len(r), i+limit)
		cut := end

		window := r[i:end]
		if nl := lastIndex(window, '\n'); nl > max0(len(window)-newlineWindow) {
			cut = i + nl + 1
		} else if sp := lastIndex(window, ' '); sp > max0(len(window)-spaceWindow) {
			cut = i + sp + 1
		}
		if cut <= i {
			cut = end
		}

		if chunk := strings.TrimSpace(string(r[i:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		i = cut
	}
	return chunks
}

func lastIndex(r []rune, c rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == c {
			return i
		}
	}
	return -1
}

func max0(n int) int {
	return max(0, n)
}
