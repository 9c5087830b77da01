package feed

// bird subcommands and flags.
// These are isolated here because bird changes its CLI surface between releases.
// Update these when calls start failing with usage errors.

const (
	cmdWhoami     = "whoami"
	cmdUserTweets = "user-tweets"
	cmdRead       = "read"
	cmdReplies    = "replies"

	flagPlain    = "--plain"
	flagNoColor  = "--no-color"
	flagJSON     = "--json"
	flagJSONFull = "--json-full"
	flagCount    = "-n"
	flagAll      = "--all"
	flagMaxPages = "--max-pages"
	flagDelay    = "--delay"
	flagCursor   = "--cursor"
)

// outputMode selects how bird formats stdout.
type outputMode int

const (
	outputPlain outputMode = iota
	outputJSON
	outputJSONFull
)

func (m outputMode) flags() []string {
	flags := []string{flagPlain, flagNoColor}
	switch m {
	case outputJSON:
		flags = append(flags, flagJSON)
	case outputJSONFull:
		flags = append(flags, flagJSONFull)
	}
	return flags
}
