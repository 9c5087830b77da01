package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Archive keeps compiled reports in SQLite so past runs can be reviewed.
// It is a record, not the processed-set: eligibility only ever consults State.
type Archive struct {
	db *sql.DB
}

// OpenArchive creates a new Archive with SQLite backend
func OpenArchive(dbPath string) (*Archive, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// migrate creates the database schema
func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		post_id TEXT PRIMARY KEY,
		handle TEXT NOT NULL,
		url TEXT,
		post_created_at TEXT,
		processed_at TEXT NOT NULL,
		run_id TEXT,
		fetched INTEGER NOT NULL,
		reply_count INTEGER,
		supportive INTEGER NOT NULL,
		skeptical INTEGER NOT NULL,
		neutral INTEGER NOT NULL,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_processed_at ON reports(processed_at);
	`

	_, err := a.db.Exec(schema)
	return err
}

// SaveReport inserts or replaces the archived report for a post
func (a *Archive) SaveReport(e *ReportEntry) error {
	var replyCount sql.NullInt64
	if e.ReplyCount != nil {
		replyCount = sql.NullInt64{Int64: int64(*e.ReplyCount), Valid: true}
	}

	_, err := a.db.Exec(`
		INSERT INTO reports (post_id, handle, url, post_created_at, processed_at, run_id,
			fetched, reply_count, supportive, skeptical, neutral, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			processed_at = excluded.processed_at,
			run_id = excluded.run_id,
			fetched = excluded.fetched,
			reply_count = excluded.reply_count,
			supportive = excluded.supportive,
			skeptical = excluded.skeptical,
			neutral = excluded.neutral,
			report = excluded.report
	`, e.PostID, e.Handle, e.URL, e.PostCreatedAt, e.ProcessedAt.UTC().Format(time.RFC3339Nano), e.RunID,
		e.Fetched, replyCount, e.Supportive, e.Skeptical, e.Neutral, e.Report)

	return err
}

// RecentReports returns the newest archived reports first
func (a *Archive) RecentReports(limit int) ([]ReportEntry, error) {
	rows, err := a.db.Query(`
		SELECT post_id, handle, url, post_created_at, processed_at, run_id,
			fetched, reply_count, supportive, skeptical, neutral, report
		FROM reports
		ORDER BY processed_at DESC, post_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetReport returns the archived report for postID, or nil if none exists
func (a *Archive) GetReport(postID string) (*ReportEntry, error) {
	rows, err := a.db.Query(`
		SELECT post_id, handle, url, post_created_at, processed_at, run_id,
			fetched, reply_count, supportive, skeptical, neutral, report
		FROM reports
		WHERE post_id = ?
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanReports(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ErrNoArchive is returned by commands that need an archive when none is configured.
var ErrNoArchive = errors.New("no report archive configured (set archive.path)")

func scanReports(rows *sql.Rows) ([]ReportEntry, error) {
	var entries []ReportEntry
	for rows.Next() {
		var e ReportEntry
		var replyCount sql.NullInt64
		var url, createdAt, runID sql.NullString
		var processedAt string

		err := rows.Scan(
			&e.PostID, &e.Handle, &url, &createdAt, &processedAt, &runID,
			&e.Fetched, &replyCount, &e.Supportive, &e.Skeptical, &e.Neutral, &e.Report,
		)
		if err != nil {
			return nil, err
		}

		e.ProcessedAt, err = time.Parse(time.RFC3339Nano, processedAt)
		if err != nil {
			return nil, fmt.Errorf("bad processed_at for %s: %w", e.PostID, err)
		}
		e.URL = url.String
		e.PostCreatedAt = createdAt.String
		e.RunID = runID.String
		if replyCount.Valid {
			n := int(replyCount.Int64)
			e.ReplyCount = &n
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
