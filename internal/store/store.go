// Package store persists the list of generated sites for the dashboard.
// The data is advisory: pipeline success never depends on a store write,
// and callers apply a log-and-continue policy on failure.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SiteRecord is one known generated site.
type SiteRecord struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	RepoURL     string    `json:"repoUrl"`
	DeployURL   string    `json:"deployUrl,omitempty"`
	ProjectURL  string    `json:"projectUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SiteStore abstracts the known-sites persistence so callers never touch
// process-global state.
type SiteStore interface {
	Add(ctx context.Context, record SiteRecord) error
	List(ctx context.Context) ([]SiteRecord, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id           TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	repo_url     TEXT NOT NULL,
	deploy_url   TEXT,
	project_url  TEXT,
	created_at   DATETIME NOT NULL
);
`

// SQLiteStore is the durable SiteStore implementation.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening site store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating site store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Add(ctx context.Context, record SiteRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO sites (id, company_name, repo_url, deploy_url, project_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.CompanyName,
		record.RepoURL,
		record.DeployURL,
		record.ProjectURL,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting site %q: %w", record.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SiteRecord, error) {
	const query = `
		SELECT id, company_name, repo_url, deploy_url, project_url, created_at
		FROM sites
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	defer rows.Close()

	var records []SiteRecord
	for rows.Next() {
		var r SiteRecord
		var deployURL, projectURL sql.NullString
		if err := rows.Scan(&r.ID, &r.CompanyName, &r.RepoURL, &deployURL, &projectURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning site row: %w", err)
		}
		r.DeployURL = deployURL.String
		r.ProjectURL = projectURL.String
		records = append(records, r)
	}
	return records, rows.Err()
}
