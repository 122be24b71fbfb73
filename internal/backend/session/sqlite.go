package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db               *sql.DB
	connectionString string
	ttl              time.Duration
	now              func() time.Time
}

func NewSQLiteStore(connectionString string, ttl time.Duration) (*SQLiteStore, error) {
	if connectionString == "" {
		connectionString = ":memory:"
	}
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every pooled connection to ":memory:" would otherwise see its own empty database
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:               db,
		connectionString: connectionString,
		ttl:              ttl,
		now:              time.Now,
	}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, username string) (*Session, error) {
	session, err := newSession(username, s.ttl, s.now())
	if err != nil {
		return nil, err
	}

	var expiresAt int64
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.UnixNano()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID, session.Username, session.CreatedAt.UnixNano(), expiresAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, created_at, expires_at FROM sessions WHERE id = ?", id)

	var (
		session   Session
		createdAt int64
		expiresAt int64
	)
	if err := row.Scan(&session.ID, &session.Username, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	session.CreatedAt = time.Unix(0, createdAt)
	if expiresAt != 0 {
		session.ExpiresAt = time.Unix(0, expiresAt)
	}

	if session.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &session, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
