package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/abaranti/abaranti/internal/platform/pending"
)

// Engine runs the two-step submission protocol for any Definition: the
// input step validates and stages a change, the confirm step commits it.
type Engine struct {
	store    pending.Store
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
	newToken func() string
	tx       TxFunc
}

// TxFunc runs fn in one transaction, handing it the transactional context.
// db.WithTx bound to a pool satisfies it.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// NewEngine creates an engine over store. metrics may be nil.
func NewEngine(store pending.Store, logger zerolog.Logger, metrics *Metrics) *Engine {
	return &Engine{
		store:    store,
		logger:   logger.With().Str("component", "workflow").Logger(),
		metrics:  metrics,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

func (e *Engine) log(level zerolog.Level, def *Definition, mode pending.Mode, sessionID string) *zerolog.Event {
	return e.logger.WithLevel(level).
		Str("kind", string(def.Kind)).
		Str("mode", string(mode)).
		Str("session", sessionID)
}

// WithTx makes Confirm take the change from the store and commit it in a
// single transaction. Only useful when the store and the backends share the
// database behind tx.
func (e *Engine) WithTx(tx TxFunc) *Engine {
	e.tx = tx
	return e
}

// Stage validates raw, runs the backend guards and, only if everything
// passes, replaces the session's pending change for def.Kind. Nothing is
// written on failure.
func (e *Engine) Stage(ctx context.Context, sessionID string, def *Definition, mode pending.Mode, targetID string, raw map[string]string) (*pending.Change, error) {
	kind := string(def.Kind)

	vals, err := def.Validate(mode, raw)
	if err != nil {
		e.metrics.observe(kind, "stage", "invalid")
		e.log(zerolog.DebugLevel, def, mode, sessionID).Err(err).Msg("stage rejected")
		return nil, err
	}

	if err := def.Backend.Check(ctx, mode, targetID, vals); err != nil {
		if _, ok := AsValidationErrors(err); ok {
			var dk *DuplicateKey
			outcome := "invalid"
			if errors.As(err, &dk) {
				outcome = "duplicate"
			}
			e.metrics.observe(kind, "stage", outcome)
			e.log(zerolog.DebugLevel, def, mode, sessionID).Str("outcome", outcome).Msg("stage rejected by backend")
			return nil, err
		}
		e.metrics.observe(kind, "stage", "error")
		return nil, fmt.Errorf("check %s: %w", kind, err)
	}

	ch := &pending.Change{
		Kind:     def.Kind,
		Mode:     mode,
		TargetID: targetID,
		Token:    e.newToken(),
		Fields:   map[string]any(vals),
		StagedAt: e.now(),
	}
	if err := e.store.Put(ctx, sessionID, def.Kind, ch); err != nil {
		e.metrics.observe(kind, "stage", "error")
		return nil, fmt.Errorf("stage %s: %w", kind, err)
	}

	e.metrics.observe(kind, "stage", "staged")
	e.log(zerolog.DebugLevel, def, mode, sessionID).Msg("change staged")
	return ch, nil
}

// Review returns the staged change for the confirm page. A change staged
// for another mode or record counts as missing.
func (e *Engine) Review(ctx context.Context, sessionID string, def *Definition, mode pending.Mode, targetID string) (*pending.Change, error) {
	ch, err := e.store.Get(ctx, sessionID, def.Kind)
	if errors.Is(err, pending.ErrNotFound) {
		return nil, ErrMissingPendingChange
	}
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", def.Kind, err)
	}
	if ch.Mode != mode || ch.TargetID != targetID {
		return nil, ErrMissingPendingChange
	}
	return ch, nil
}

// Confirm commits the staged change if token matches it. The change is
// taken out of the store before the commit, so of two confirms of the same
// change only one reaches the backend; the other gets
// ErrMissingPendingChange. On a commit failure the change is put back and a
// *PersistenceFailure is returned.
func (e *Engine) Confirm(ctx context.Context, sessionID string, def *Definition, mode pending.Mode, targetID, token string) (*pending.Change, error) {
	kind := string(def.Kind)

	ch, err := e.Review(ctx, sessionID, def, mode, targetID)
	if err != nil {
		if errors.Is(err, ErrMissingPendingChange) {
			e.metrics.observe(kind, "confirm", "missing")
		}
		return nil, err
	}
	if token != ch.Token {
		e.metrics.observe(kind, "confirm", "stale")
		e.log(zerolog.InfoLevel, def, mode, sessionID).Msg("confirm refused: pending change was replaced")
		return nil, ErrStalePendingChange
	}

	var taken *pending.Change
	commit := func(ctx context.Context) error {
		var err error
		taken, err = e.store.Take(ctx, sessionID, def.Kind, token)
		switch {
		case errors.Is(err, pending.ErrNotFound):
			return ErrMissingPendingChange
		case errors.Is(err, pending.ErrTokenMismatch):
			return ErrStalePendingChange
		case err != nil:
			return &PersistenceFailure{Kind: def.Kind, Err: err}
		}
		if err := def.Backend.Commit(ctx, mode, targetID, Values(taken.Fields)); err != nil {
			return &PersistenceFailure{Kind: def.Kind, Err: err}
		}
		return nil
	}

	if e.tx != nil {
		// A rollback also undoes the take.
		err = e.tx(ctx, commit)
	} else {
		err = commit(ctx)
		var pf *PersistenceFailure
		if errors.As(err, &pf) && taken != nil {
			if rerr := e.store.Restore(ctx, sessionID, def.Kind, taken); rerr != nil {
				e.log(zerolog.WarnLevel, def, mode, sessionID).Err(rerr).Msg("restore pending change after failed commit")
			}
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrMissingPendingChange):
		e.metrics.observe(kind, "confirm", "missing")
		e.log(zerolog.InfoLevel, def, mode, sessionID).Msg("confirm refused: change already taken by another request")
		return nil, err
	case errors.Is(err, ErrStalePendingChange):
		e.metrics.observe(kind, "confirm", "stale")
		e.log(zerolog.InfoLevel, def, mode, sessionID).Msg("confirm refused: pending change was replaced")
		return nil, err
	default:
		var pf *PersistenceFailure
		if !errors.As(err, &pf) {
			err = &PersistenceFailure{Kind: def.Kind, Err: err}
		}
		e.metrics.observe(kind, "confirm", "failed")
		e.log(zerolog.ErrorLevel, def, mode, sessionID).Err(err).Msg("commit failed, pending change kept")
		return nil, err
	}

	e.metrics.observe(kind, "confirm", "committed")
	e.log(zerolog.InfoLevel, def, mode, sessionID).Msg("change committed")
	return taken, nil
}

// Back returns the staged values to prefill the input form. The pending
// change is left untouched.
func (e *Engine) Back(ctx context.Context, sessionID string, def *Definition, mode pending.Mode, targetID string) (Values, error) {
	ch, err := e.Review(ctx, sessionID, def, mode, targetID)
	if err != nil {
		return nil, err
	}
	e.metrics.observe(string(def.Kind), "back", "ok")
	return Values(ch.Fields), nil
}

// Discard drops the session's pending change for def.Kind without
// persisting anything.
func (e *Engine) Discard(ctx context.Context, sessionID string, def *Definition) error {
	if err := e.store.Clear(ctx, sessionID, def.Kind); err != nil {
		return fmt.Errorf("discard %s: %w", def.Kind, err)
	}
	e.metrics.observe(string(def.Kind), "discard", "ok")
	return nil
}
