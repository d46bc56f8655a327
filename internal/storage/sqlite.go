package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Page statuses recorded in the manifest
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// PageRecord is one row of the pages table
type PageRecord struct {
	URL           string
	Folder        string
	Status        string
	Error         string
	TextLength    int
	Images        int
	Documents     int
	DocumentLinks int
	ProcessedAt   time.Time
}

// ArtifactRecord is one row of the artifacts table
type ArtifactRecord struct {
	PageURL     string
	Kind        string
	OriginalURL string
	Filename    string
	Path        string
	ContentType string
	Size        int64
}

// PageFilter narrows QueryPages
type PageFilter struct {
	Status string
}

// Manifest records what a run mirrored in a SQLite database
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens or creates the manifest database at dbPath
func OpenManifest(dbPath string) (*Manifest, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT UNIQUE NOT NULL,
		folder TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		text_length INTEGER NOT NULL DEFAULT 0,
		image_count INTEGER NOT NULL DEFAULT 0,
		document_count INTEGER NOT NULL DEFAULT 0,
		document_link_count INTEGER NOT NULL DEFAULT 0,
		processed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_url TEXT NOT NULL,
		kind TEXT NOT NULL,
		original_url TEXT NOT NULL,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (page_url) REFERENCES pages(url)
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_page_url ON artifacts(page_url);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Manifest{db: db}, nil
}

// SavePage stores a page and replaces its artifact rows in one transaction
func (m *Manifest) SavePage(page PageRecord, artifacts []ArtifactRecord) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	processedAt := page.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO pages
		(url, folder, status, error, text_length, image_count, document_count, document_link_count, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.URL,
		page.Folder,
		page.Status,
		page.Error,
		page.TextLength,
		page.Images,
		page.Documents,
		page.DocumentLinks,
		processedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.URL, err)
	}

	if _, err := tx.Exec("DELETE FROM artifacts WHERE page_url = ?", page.URL); err != nil {
		return fmt.Errorf("failed to clear artifacts for %s: %w", page.URL, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO artifacts (page_url, kind, original_url, filename, path, content_type, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare artifact insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range artifacts {
		if _, err := stmt.Exec(page.URL, a.Kind, a.OriginalURL, a.Filename, a.Path, a.ContentType, a.Size); err != nil {
			return fmt.Errorf("failed to save artifact %s: %w", a.OriginalURL, err)
		}
	}

	return tx.Commit()
}

// QueryPages returns pages in the order they were first recorded
func (m *Manifest) QueryPages(filter PageFilter) ([]PageRecord, error) {
	query := `SELECT url, folder, status, error, text_length, image_count, document_count, document_link_count, processed_at
		FROM pages WHERE 1=1`
	args := make([]interface{}, 0)

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY id"

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	results := make([]PageRecord, 0)
	for rows.Next() {
		var rec PageRecord
		var processedAt string
		err := rows.Scan(
			&rec.URL,
			&rec.Folder,
			&rec.Status,
			&rec.Error,
			&rec.TextLength,
			&rec.Images,
			&rec.Documents,
			&rec.DocumentLinks,
			&processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		rec.ProcessedAt, _ = time.Parse(time.RFC3339Nano, processedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// QueryArtifacts returns the artifacts saved for one page
func (m *Manifest) QueryArtifacts(pageURL string) ([]ArtifactRecord, error) {
	rows, err := m.db.Query(`SELECT page_url, kind, original_url, filename, path, content_type, size
		FROM artifacts WHERE page_url = ? ORDER BY id`, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	results := make([]ArtifactRecord, 0)
	for rows.Next() {
		var rec ArtifactRecord
		if err := rows.Scan(&rec.PageURL, &rec.Kind, &rec.OriginalURL, &rec.Filename, &rec.Path, &rec.ContentType, &rec.Size); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// Stats returns page and artifact totals
func (m *Manifest) Stats() (map[string]int, error) {
	stats := make(map[string]int)

	queries := map[string]string{
		"total_pages":  "SELECT COUNT(*) FROM pages",
		"ok_pages":     "SELECT COUNT(*) FROM pages WHERE status = 'ok'",
		"failed_pages": "SELECT COUNT(*) FROM pages WHERE status = 'failed'",
		"artifacts":    "SELECT COUNT(*) FROM artifacts",
	}

	for key, query := range queries {
		var n int
		if err := m.db.QueryRow(query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to compute %s: %w", key, err)
		}
		stats[key] = n
	}

	return stats, nil
}

// Close closes the database connection
func (m *Manifest) Close() error {
	return m.db.Close()
}
