package store

import "time"

// ReportEntry is an archived report for one post
type ReportEntry struct {
	PostID        string    `json:"post_id"`
	Handle        string    `json:"handle"`
	URL           string    `json:"url"`
	PostCreatedAt string    `json:"post_created_at"`
	ProcessedAt   time.Time `json:"processed_at"`
	RunID         string    `json:"run_id"`
	Fetched       int       `json:"fetched"`
	ReplyCount    *int      `json:"reply_count,omitempty"`
	Supportive    int       `json:"supportive"`
	Skeptical     int       `json:"skeptical"`
	Neutral       int       `json:"neutral"`
	Report        string    `json:"report"`
}
