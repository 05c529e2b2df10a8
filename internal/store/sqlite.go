package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/satalloc/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by DeleteInstance when no row matches.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" sees its own empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

const instanceColumns = `id, name, content_hash, document, satellites, users, requests, created_at`

func (s *SQLiteStore) CreateInstance(ctx context.Context, rec *model.InstanceRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "instances", "id", rec.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instances (`+instanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.ContentHash, rec.Document,
		rec.Satellites, rec.Users, rec.Requests,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error) {
	s.logger.Debug("sql", "op", "select", "table", "instances", "id", id)
	return s.getOne(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
}

func (s *SQLiteStore) GetInstanceByHash(ctx context.Context, hash string) (*model.InstanceRecord, error) {
	s.logger.Debug("sql", "op", "select_by_hash", "table", "instances", "hash", hash)
	return s.getOne(ctx, `SELECT `+instanceColumns+` FROM instances WHERE content_hash = ?`, hash)
}

// getOne returns (nil, nil) when no row matches.
func (s *SQLiteStore) getOne(ctx context.Context, query string, arg any) (*model.InstanceRecord, error) {
	rec, err := scanInstance(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListInstances returns a page of records without their documents, newest first.
func (s *SQLiteStore) ListInstances(ctx context.Context, opts model.ListOptions) ([]*model.InstanceRecord, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "instances", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, content_hash, '', satellites, users, requests, created_at
		 FROM instances ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*model.InstanceRecord
	for rows.Next() {
		rec, err := scanInstance(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (s *SQLiteStore) DeleteInstance(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "instances", "id", id)

	result, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (*model.InstanceRecord, error) {
	var rec model.InstanceRecord
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.Name, &rec.ContentHash, &rec.Document,
		&rec.Satellites, &rec.Users, &rec.Requests, &createdAt); err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rec, nil
}
