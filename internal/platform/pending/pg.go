package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abaranti/abaranti/internal/platform/db"
)

// PGStore keeps pending changes in the pending_change table so they survive
// restarts and are shared between server instances. Calls made under
// db.WithTx join the caller's transaction.
type PGStore struct {
	pool   *pgxpool.Pool
	ttl    time.Duration
	sealer Sealer
	now    func() time.Time
}

// NewPGStore creates a Postgres-backed store. sealer may be nil.
func NewPGStore(pool *pgxpool.Pool, ttl time.Duration, sealer Sealer) *PGStore {
	return &PGStore{pool: pool, ttl: ttl, sealer: sealer, now: time.Now}
}

func (s *PGStore) Put(ctx context.Context, sessionID string, kind Kind, ch *Change) error {
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

	_, err = db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO pending_change (session_id, kind, token, payload, staged_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, kind)
		DO UPDATE SET token = EXCLUDED.token, payload = EXCLUDED.payload, staged_at = EXCLUDED.staged_at`,
		sessionID, string(kind), cp.Token, payload, cp.StagedAt)
	if err != nil {
		return fmt.Errorf("put pending change: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, sessionID string, kind Kind) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	var payload []byte
	var stagedAt time.Time
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT payload, staged_at FROM pending_change
		WHERE session_id = $1 AND kind = $2`,
		sessionID, string(kind)).Scan(&payload, &stagedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending change: %w", err)
	}
	if expired(stagedAt, s.now(), s.ttl) {
		return nil, ErrNotFound
	}
	return open(s.sealer, sessionID, kind, payload)
}

func (s *PGStore) Clear(ctx context.Context, sessionID string, kind Kind) error {
	if err := checkKey(sessionID, kind); err != nil {
		return err
	}
	_, err := db.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM pending_change WHERE session_id = $1 AND kind = $2`,
		sessionID, string(kind))
	if err != nil {
		return fmt.Errorf("clear pending change: %w", err)
	}
	return nil
}

func (s *PGStore) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `DELETE FROM pending_change WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("clear session pending changes: %w", err)
	}
	return nil
}

// Take deletes the row only when the token matches, so concurrent confirms
// of one change race on the row lock and the loser sees no row. Under
// db.WithTx a rolled back transaction puts the change back.
func (s *PGStore) Take(ctx context.Context, sessionID string, kind Kind, token string) (*Change, error) {
	if err := checkKey(sessionID, kind); err != nil {
		return nil, err
	}

	var payload []byte
	var stagedAt time.Time
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		DELETE FROM pending_change
		WHERE session_id = $1 AND kind = $2 AND token = $3
		RETURNING payload, staged_at`,
		sessionID, string(kind), token).Scan(&payload, &stagedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.Get(ctx, sessionID, kind); gerr == nil {
			return nil, ErrTokenMismatch
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take pending change: %w", err)
	}
	if expired(stagedAt, s.now(), s.ttl) {
		return nil, ErrNotFound
	}
	return open(s.sealer, sessionID, kind, payload)
}

func (s *PGStore) Restore(ctx context.Context, sessionID string, kind Kind, ch *Change) error {
	if err := checkPut(sessionID, kind, ch); err != nil {
		return err
	}
	cp := ch.Clone()
	cp.Kind = kind
	payload, err := seal(s.sealer, sessionID, kind, cp)
	if err != nil {
		return fmt.Errorf("encode pending change: %w", err)
	}
	_, err = db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO pending_change (session_id, kind, token, payload, staged_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, kind) DO NOTHING`,
		sessionID, string(kind), cp.Token, payload, cp.StagedAt)
	if err != nil {
		return fmt.Errorf("restore pending change: %w", err)
	}
	return nil
}

func (s *PGStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := db.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM pending_change WHERE staged_at <= $1`, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge pending changes: %w", err)
	}
	return tag.RowsAffected(), nil
}
