package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS links (
    id              BIGSERIAL PRIMARY KEY,
    code            TEXT NOT NULL UNIQUE,
    target_url      TEXT NOT NULL,
    total_clicks    BIGINT NOT NULL DEFAULT 0,
    last_clicked_at TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL
)`

// uniqueViolation is the PostgreSQL error class for unique constraint hits.
const uniqueViolation = "23505"

// PostgresStore implements LinkStore backed by PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	clock model.Clock
}

var _ LinkStore = (*PostgresStore)(nil)

// NewPostgresStore connects using a lib/pq DSN and applies the schema.
// A nil clock defaults to the system clock.
func NewPostgresStore(dsn string, clock model.Clock) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	if clock == nil {
		clock = model.RealClock{}
	}
	return &PostgresStore{db: db, clock: clock}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, code, targetURL string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	var link model.Link
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO links (code, target_url, total_clicks, created_at)
		 VALUES ($1, $2, 0, $3)
		 RETURNING id, created_at`,
		code, targetURL, now,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, errors.ErrDuplicateCode
		}
		return nil, fmt.Errorf("inserting link: %w", err)
	}

	link.Code = code
	link.TargetURL = targetURL
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, code, target_url, total_clicks, last_clicked_at, created_at FROM links WHERE code = $1",
		code,
	)
	return scanLink(row)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Link, error) {
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

// IncrementClick relies on the counter expression being evaluated inside
// PostgreSQL, so concurrent clicks on one code serialize on the row.
func (s *PostgresStore) IncrementClick(ctx context.Context, code string) (*model.Link, error) {
	now := s.clock.Now().UTC()

	row := s.db.QueryRowContext(ctx,
		`UPDATE links SET total_clicks = total_clicks + 1, last_clicked_at = $1
		 WHERE code = $2
		 RETURNING id, code, target_url, total_clicks, last_clicked_at, created_at`,
		now, code,
	)
	return scanLink(row)
}

func (s *PostgresStore) Delete(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM links WHERE code = $1", code)
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

func (s *PostgresStore) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM links WHERE code = $1)", code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
