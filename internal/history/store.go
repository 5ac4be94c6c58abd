package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches
var ErrNotFound = errors.New("no publish recorded")

// Status is the outcome of a recorded publish
type Status string

const (
	// StatusPublished means the commit landed and Pages is serving the branch
	StatusPublished Status = "published"
	// StatusPagesUnconfirmed means the commit landed but enabling Pages failed
	StatusPagesUnconfirmed Status = "pages-unconfirmed"
	// StatusFailed means the publish aborted before the branch was updated
	StatusFailed Status = "failed"
)

// Record is one publish run
type Record struct {
	ID          string
	Repository  string // owner/name, or the requested name when resolution failed
	Directory   string
	Branch      string
	CommitSHA   string
	PagesURL    string
	PublishedAt time.Time
	Status      Status
	Error       string
}

// timeLayout is fixed width so published_at sorts correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store reads and writes publish records
type Store struct {
	DB *sql.DB
}

// OpenStore opens the history database at path
func OpenStore(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.DB.Close()
}

// Record inserts rec, assigning an ID and timestamp when they are empty
func (s *Store) Record(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.PublishedAt.IsZero() {
		rec.PublishedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusPublished
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO publishes (id, repository, directory, branch, commit_sha, pages_url, status, error, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Repository, rec.Directory, rec.Branch, rec.CommitSHA, rec.PagesURL,
		string(rec.Status), rec.Error, rec.PublishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return rec, fmt.Errorf("insert publish record: %w", err)
	}
	return rec, nil
}

// List returns the most recent records first. A limit of zero or less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, repository, directory, branch, commit_sha, pages_url, status, error, published_at
		FROM publishes ORDER BY published_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list publish records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Latest returns the most recent successful publish of repository (owner/name)
func (s *Store) Latest(ctx context.Context, repository string) (Record, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, repository, directory, branch, commit_sha, pages_url, status, error, published_at
		 FROM publishes WHERE repository = ? AND status != ?
		 ORDER BY published_at DESC, rowid DESC LIMIT 1`,
		repository, string(StatusFailed),
	)
	return scanRecord(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var status, publishedAt string
	err := s.Scan(&rec.ID, &rec.Repository, &rec.Directory, &rec.Branch, &rec.CommitSHA,
		&rec.PagesURL, &status, &rec.Error, &publishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("scan publish record: %w", err)
	}
	rec.Status = Status(status)
	t, err := time.Parse(timeLayout, publishedAt)
	if err != nil {
		return rec, fmt.Errorf("parse published_at: %w", err)
	}
	rec.PublishedAt = t
	return rec, nil
}
