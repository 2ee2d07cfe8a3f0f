package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore keeps pending changes in a local SQLite file. It survives
// restarts of a single instance without needing the main database.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	sealer Sealer
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path. sealer may be nil.
func NewSQLiteStore(path string, ttl time.Duration, sealer Sealer) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite pending store: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS pending_change (
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		token TEXT NOT NULL DEFAULT '',
		payload BLOB NOT NULL,
		staged_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, kind)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create pending_change table: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, sealer: sealer, now: time.Now}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, sessionID string, kind Kind, ch *Change) error {
	if err := checkPut(sessionID, kind, ch); err != nil {
		return err
	}
	cp := ch.Clone()
	cp.Kind = kind
	if cp.StagedAt.IsZero() {
		cp.StagedAt = s.now()
	}
	payload, err := seal(s.sealer, sessionID, kind, cp)
	if err != nil {
		return fmt.Errorf("encode pending change: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_change(session_id, kind, token, payload, staged_at) VALUES(?,?,?,?,?)
		ON CONFLICT(session_id, kind) DO UPDATE SET token=excluded.token, payload=excluded.payload, staged_at=excluded.staged_at`,
		sessionID, string(kind), cp.Token, payload, cp.StagedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("put pending change: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string, kind Kind) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	var payload []byte
	var stagedNanos int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, staged_at FROM pending_change WHERE session_id = ? AND kind = ?`,
		sessionID, string(kind)).Scan(&payload, &stagedNanos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	if expired(time.Unix(0, stagedNanos), s.now(), s.ttl) {
		return nil, ErrNotFound
	}
	return open(s.sealer, sessionID, kind, payload)
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string, kind Kind) error {
	if err := checkKey(sessionID, kind); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_change WHERE session_id = ? AND kind = ?`,
		sessionID, string(kind)); err != nil {
		return fmt.Errorf("clear pending change: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_change WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session pending changes: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Take(ctx context.Context, sessionID string, kind Kind, token string) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	var payload []byte
	var stagedNanos int64
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM pending_change WHERE session_id = ? AND kind = ? AND token = ?
		RETURNING payload, staged_at`,
		sessionID, string(kind), token).Scan(&payload, &stagedNanos)
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := s.Get(ctx, sessionID, kind); gerr == nil {
			return nil, ErrTokenMismatch
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take pending change: %w", err)
	}
	if expired(time.Unix(0, stagedNanos), s.now(), s.ttl) {
		return nil, ErrNotFound
	}
	return open(s.sealer, sessionID, kind, payload)
}

func (s *SQLiteStore) Restore(ctx context.Context, sessionID string, kind Kind, ch *Change) error {
	if err := checkPut(sessionID, kind, ch); err != nil {
		return err
	}
	cp := ch.Clone()
	cp.Kind = kind
	payload, err := seal(s.sealer, sessionID, kind, cp)
	if err != nil {
		return fmt.Errorf("encode pending change: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_change(session_id, kind, token, payload, staged_at) VALUES(?,?,?,?,?)
		ON CONFLICT(session_id, kind) DO NOTHING`,
		sessionID, string(kind), cp.Token, payload, cp.StagedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("restore pending change: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_change WHERE staged_at <= ?`, s.now().Add(-s.ttl).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge pending changes: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
