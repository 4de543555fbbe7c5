package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT NOT NULL UNIQUE,
    target_url      TEXT NOT NULL,
    total_clicks    INTEGER NOT NULL DEFAULT 0,
    last_clicked_at DATETIME,
    created_at      DATETIME NOT NULL
)`

// SQLiteStore implements LinkStore backed by SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock model.Clock
}

var _ LinkStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. A nil clock defaults to the system clock.
func NewSQLiteStore(path string, clock model.Clock) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single connection serializes writers; SQLite allows only one anyway
	// and this avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	if clock == nil {
		clock = model.RealClock{}
	}
	return &SQLiteStore{db: db, clock: clock}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, code, targetURL string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO links (code, target_url, total_clicks, created_at) VALUES (?, ?, 0, ?)",
		code, targetURL, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if stderrors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, errors.ErrDuplicateCode
		}
		return nil, fmt.Errorf("inserting link: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted id: %w", err)
	}

	return &model.Link{
		ID:        id,
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, code, target_url, total_clicks, last_clicked_at, created_at FROM links WHERE code = ?",
		code,
	)
	return scanLink(row)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.Link, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, target_url, total_clicks, last_clicked_at, created_at FROM links ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// IncrementClick runs the counter update as a single UPDATE with an
// expression evaluated by SQLite, never a read-modify-write in Go.
func (s *SQLiteStore) IncrementClick(ctx context.Context, code string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	row := s.db.QueryRowContext(ctx,
		`UPDATE links SET total_clicks = total_clicks + 1, last_clicked_at = ?
		 WHERE code = ?
		 RETURNING id, code, target_url, total_clicks, last_clicked_at, created_at`,
		now, code,
	)
	return scanLink(row)
}

func (s *SQLiteStore) Delete(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM links WHERE code = ?", code)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM links WHERE code = ?", code).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*model.Link, error) {
	var link model.Link
	var lastClicked sql.NullTime

	err := row.Scan(&link.ID, &link.Code, &link.TargetURL, &link.TotalClicks, &lastClicked, &link.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning link: %w", err)
	}

	link.CreatedAt = link.CreatedAt.UTC()
	if lastClicked.Valid {
		t := lastClicked.Time.UTC()
		link.LastClickedAt = &t
	}
	return &link, nil
}
